package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/abgdnv/storefront/internal/api"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/spf13/cobra"
)

func (c *cli) productsCmd() *cobra.Command {
	var search, category, sortKey string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products",
		Long: `List products from the backend, filtered and sorted.

When the backend is unreachable a built-in demo catalog is shown instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.commandContext(cmd)
			defer cancel()
			state := c.deps.Catalog.Apply(ctx, catalog.Filter{
				Search:   search,
				Category: category,
				Sort:     catalog.SortKey(sortKey),
			})
			if state.Degraded {
				fmt.Fprintln(c.out, "(backend unavailable, showing demo catalog)")
			}
			return writeProducts(c.out, state.Products)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Match name or description")
	cmd.Flags().StringVar(&category, "category", catalog.AllCategories, "Category slug, e.g. electronics")
	cmd.Flags().StringVar(&sortKey, "sort", string(catalog.SortName), "name, price-low, price-high, rating or newest")
	return cmd
}

func (c *cli) featuredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "featured",
		Short: "List featured products",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.commandContext(cmd)
			defer cancel()
			products, degraded := c.deps.Catalog.Featured(ctx)
			if degraded {
				fmt.Fprintln(c.out, "(backend unavailable, showing demo catalog)")
			}
			return writeProducts(c.out, products)
		},
	}
}

func (c *cli) productCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "product <product-id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.commandContext(cmd)
			defer cancel()
			p, err := c.deps.Client.Product(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to fetch product %d: %w", id, err)
			}
			if err := writeProducts(c.out, []api.Product{*p}); err != nil {
				return err
			}
			if p.Description != "" {
				fmt.Fprintf(c.out, "\n%s\n", p.Description)
			}
			return nil
		},
	}
}

func (c *cli) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.commandContext(cmd)
			defer cancel()
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tLABEL")
			labels, err := c.deps.Client.Categories(ctx)
			if err != nil {
				fmt.Fprintln(c.out, "(backend unavailable, showing built-in categories)")
				for _, o := range catalog.Categories() {
					fmt.Fprintf(tw, "%s\t%s\n", o.Value, o.Label)
				}
				return tw.Flush()
			}
			for _, label := range labels {
				fmt.Fprintf(tw, "%s\t%s\n", api.Slug(label), label)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the cart",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show cart contents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := c.commandContext(cmd)
			defer cancel()
			if err := c.deps.Cart.Refresh(ctx); err != nil {
				return err
			}
			return writeCart(c.out, c.deps.Cart.Snapshot())
		},
	}

	add := &cobra.Command{
		Use:   "add <product-id> [quantity]",
		Short: "Add a product to the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			quantity := 1
			if len(args) == 2 {
				if quantity, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("invalid quantity %q", args[1])
				}
			}
			return c.mutateCart(cmd, func(ctx context.Context, m *cart.Manager) error { return m.AddItem(ctx, id, quantity) })
		},
	}

	update := &cobra.Command{
		Use:   "update <product-id> <quantity>",
		Short: "Set the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return c.mutateCart(cmd, func(ctx context.Context, m *cart.Manager) error { return m.UpdateItem(ctx, id, quantity) })
		},
	}

	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.mutateCart(cmd, func(ctx context.Context, m *cart.Manager) error { return m.RemoveItem(ctx, id) })
		},
	}

	clearAll := &cobra.Command{
		Use:   "clear",
		Short: "Remove every line from the cart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mutateCart(cmd, func(ctx context.Context, m *cart.Manager) error { return m.Clear(ctx) })
		},
	}

	cmd.AddCommand(show, add, update, remove, clearAll)
	return cmd
}

// mutateCart runs fn and prints the resulting cart. Notices already describe failures.
func (c *cli) mutateCart(cmd *cobra.Command, fn func(ctx context.Context, m *cart.Manager) error) error {
	ctx, cancel := c.commandContext(cmd)
	defer cancel()
	if err := fn(ctx, c.deps.Cart); err != nil {
		return err
	}
	return writeCart(c.out, c.deps.Cart.Snapshot())
}

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = envOr("STOREFRONT_PASSWORD", "")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or STOREFRONT_PASSWORD) are required")
			}
			ctx, cancel := c.commandContext(cmd)
			defer cancel()
			res, err := c.deps.Client.Login(ctx, email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := c.deps.Session.Login(ctx, res.Token); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Logged in as %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = envOr("STOREFRONT_PASSWORD", "")
			}
			if name == "" || email == "" || password == "" {
				return fmt.Errorf("--name, --email and --password (or STOREFRONT_PASSWORD) are required")
			}
			ctx, cancel := c.commandContext(cmd)
			defer cancel()
			res, err := c.deps.Client.Register(ctx, api.RegisterRequest{Name: name, Email: email, Password: password})
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			if res.Token == "" {
				fmt.Fprintf(c.out, "Account %s created, run login to continue\n", email)
				return nil
			}
			if err := c.deps.Session.Login(ctx, res.Token); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Account %s created, logged in\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.commandContext(cmd)
			defer cancel()
			if c.deps.Session.Authenticated() {
				// the local session ends regardless of the backend's answer
				_ = c.deps.Client.Logout(ctx)
			}
			if err := c.deps.Session.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Logged out")
			return nil
		},
	}
}

func (c *cli) ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List or place orders",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your orders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := c.commandContext(cmd)
			defer cancel()
			orders, err := c.deps.Client.Orders(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tITEMS\tTOTAL\tCREATED")
			for _, o := range orders {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f\t%s\n", o.ID, o.Status, cart.TotalItems(o.Items), o.Total, o.CreatedAt)
			}
			return tw.Flush()
		},
	}

	var address, payment string
	create := &cobra.Command{
		Use:   "create",
		Short: "Place an order for the current cart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := c.commandContext(cmd)
			defer cancel()
			order, err := c.deps.Client.CreateOrder(ctx, api.OrderRequest{ShippingAddress: address, PaymentMethod: payment})
			if err != nil {
				return fmt.Errorf("failed to place order: %w", err)
			}
			_ = c.deps.Cart.Refresh(ctx)
			fmt.Fprintf(c.out, "Order %d placed, total %.2f\n", order.ID, order.Total)
			return nil
		},
	}
	create.Flags().StringVar(&address, "address", "", "Shipping address")
	create.Flags().StringVar(&payment, "payment", "card", "Payment method")
	_ = create.MarkFlagRequired("address")

	cmd.AddCommand(list, create)
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", raw)
	}
	return id, nil
}

func writeProducts(w io.Writer, products []api.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tRATING\tSTOCK")
	for _, p := range products {
		stock := strconv.Itoa(p.Stock)
		switch {
		case !p.InStock():
			stock = "out of stock"
		case p.LowStock():
			stock += " (low)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.1f\t%s\n", p.ID, p.Name, p.Category, p.Price, p.Rating, stock)
	}
	return tw.Flush()
}

func writeCart(w io.Writer, snap cart.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range snap.Items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f\t%.2f\n", it.ProductID, it.Product.Name, it.Quantity, it.Product.Price, float64(it.Quantity)*it.Product.Price)
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%.2f\n", snap.TotalItems, snap.TotalPrice)
	return tw.Flush()
}
