package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
	"github.com/spf13/cobra"
)

const serviceName = "storefront"

type cli struct {
	out    io.Writer
	errOut io.Writer

	configFile  string
	backendURL  string
	sessionFile string
	logLevel    string
	timeout     time.Duration

	deps       *app.Dependencies
	closeStore func() error
	stopCart   context.CancelFunc
	cartDone   chan struct{}
}

func newCLI(out, errOut io.Writer) *cli {
	return &cli{out: out, errOut: errOut}
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Browse products and manage your cart from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "Config file (default: config.yaml)")
	root.PersistentFlags().StringVar(&c.backendURL, "backend", "", "Backend base URL (overrides config)")
	root.PersistentFlags().StringVar(&c.sessionFile, "session-file", "", "Token file (default: user config dir)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Overall command timeout")

	root.AddCommand(
		c.productsCmd(), c.productCmd(), c.featuredCmd(), c.categoriesCmd(),
		c.cartCmd(),
		c.registerCmd(), c.loginCmd(), c.logoutCmd(),
		c.ordersCmd(),
	)
	return root
}

// setup loads configuration and starts the cart worker for the duration of one command.
func (c *cli) setup(ctx context.Context) error {
	overrides := config.Defaults()
	overrides["log.level"] = c.logLevel
	overrides["log.format"] = "text"
	cfg, err := configloader.Load[*config.Config](serviceName,
		configloader.WithDefaults(overrides),
		configloader.WithFile(c.configFile),
	)
	if err != nil {
		return err
	}
	if c.backendURL != "" {
		cfg.Backend.BaseURL = c.backendURL
	}
	if c.sessionFile != "" {
		cfg.Session.Store = config.SessionStoreFile
		cfg.Session.File = c.sessionFile
	}
	// Notices are printed by the CLI itself
	cfg.Nats.Enabled = false

	logger := bootstrap.NewLoggerTo(c.errOut, pkgconfig.LogConfig{Level: c.logLevel, Format: "text"})

	store, closeStore, err := app.NewTokenStore(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	c.closeStore = closeStore

	deps, err := app.SetupDependencies(cfg, store, nil, logger)
	if err != nil {
		return err
	}
	if err := deps.Session.Init(ctx); err != nil {
		return err
	}
	c.deps = deps

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.stopCart = cancel
	c.cartDone = make(chan struct{})
	go func() {
		defer close(c.cartDone)
		_ = deps.Cart.Run(workerCtx)
	}()
	return nil
}

// shutdown prints pending notices and releases what setup acquired. Safe to call when setup never ran.
func (c *cli) shutdown() {
	if c.deps != nil {
		c.printNotices()
	}
	if c.stopCart != nil {
		c.stopCart()
		<-c.cartDone
	}
	if c.closeStore != nil {
		_ = c.closeStore()
	}
}

func (c *cli) printNotices() {
	for _, n := range c.deps.Notices.Drain() {
		fmt.Fprintf(c.errOut, "[%s] %s: %s\n", n.Variant, n.Title, n.Description)
	}
}

// commandContext bounds a command by --timeout.
func (c *cli) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

func (c *cli) requireLogin() error {
	if !c.deps.Session.Authenticated() {
		return errors.New("not logged in, run 'storefrontctl login' first")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
