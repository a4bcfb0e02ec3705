// Package app wires the storefront components together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/api"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/notify"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/abgdnv/storefront/internal/transport/rest"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Dependencies struct {
	Client  *api.Client
	Session *session.Session
	Cart    *cart.Manager
	Catalog *catalog.Controller
	Notices *notify.Recorder
	Logger  *slog.Logger
}

// SetupDependencies builds the session, backend client, cart manager and listing controller.
// publisher may be nil, in which case notices are only logged and recorded.
func SetupDependencies(cfg *config.Config, store session.TokenStore, publisher messaging.Publisher, logger *slog.Logger, opts ...api.Option) (*Dependencies, error) {
	recorder := notify.NewRecorder(cfg.Notices.Limit)
	notifier := notify.Multi{notify.NewLogNotifier(logger), recorder}
	if publisher != nil {
		notifier = append(notifier, notify.NewPublishNotifier(publisher, cfg.Nats.Subject, cfg.Nats.Timeout, logger))
	}

	sess := session.New(store, logger)
	opts = append([]api.Option{api.WithCircuitBreaker(cfg.CircuitBreaker)}, opts...)
	client, err := api.NewClient(cfg.Backend, sess, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	cartManager := cart.NewManager(client, sess, notifier, logger)

	sess.Subscribe(func(ctx context.Context, ev session.Event) {
		if ev.Expired {
			notifier.Notify(ctx, notify.Failure("Session Expired", "Please login again"))
		}
		cartManager.MarkStale()
	})

	return &Dependencies{
		Client:  client,
		Session: sess,
		Cart:    cartManager,
		Catalog: catalog.NewController(client, logger),
		Notices: recorder,
		Logger:  logger,
	}, nil
}

// SetupHttpHandler initializes the router with middleware and routes.
// Used by tests to exercise the whole stack without a listener.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, "storefront")
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Cart, deps.Catalog, deps.Session, deps.Client, deps.Notices, deps.Logger)
	handler.RegisterRoutes(mux)
}

// SetupHttpServer creates the HTTP server for the storefront API.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupHttpHandler(deps))
}

// NewTokenStore opens the configured session store. The returned close function is never nil.
func NewTokenStore(ctx context.Context, cfg config.SessionConfig) (session.TokenStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store {
	case config.SessionStoreMemory:
		return session.NewMemoryStore(""), noop, nil
	case config.SessionStoreFile:
		path := cfg.File
		if path == "" {
			var err error
			if path, err = session.DefaultFilePath(); err != nil {
				return nil, noop, err
			}
		}
		return session.NewFileStore(path), noop, nil
	case config.SessionStoreRedis:
		store, err := session.NewRedisStore(ctx, cfg.Redis, cfg.Profile)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported session store: %q", cfg.Store)
	}
}
