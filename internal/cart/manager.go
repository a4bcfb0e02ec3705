// Package cart keeps the shopper's cart in step with the backend.
//
// The backend is authoritative: every mutation is followed by a full re-fetch
// and local state is only ever replaced wholesale with what the backend returned.
// All operations run one at a time on the manager's worker, so a mutation and
// the refresh that follows it can never interleave with another mutation.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abgdnv/storefront/internal/api"
	"github.com/abgdnv/storefront/internal/notify"
	logctx "github.com/abgdnv/storefront/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/abgdnv/storefront/internal/cart")

// Backend is the slice of the backend client the manager needs.
type Backend interface {
	Cart(ctx context.Context) ([]api.CartItem, error)
	AddToCart(ctx context.Context, productID int64, quantity int) error
	UpdateCartItem(ctx context.Context, productID int64, quantity int) error
	RemoveCartItem(ctx context.Context, productID int64) error
	ClearCart(ctx context.Context) error
}

// Session reports whether a credential is present.
type Session interface {
	Authenticated() bool
}

// Snapshot is a consistent copy of the cart state.
type Snapshot struct {
	Items      []api.CartItem `json:"items"`
	TotalItems int            `json:"total_items"`
	TotalPrice float64        `json:"total_price"`
	Loading    bool           `json:"is_loading"`
}

type op struct {
	ctx    context.Context
	run    func(ctx context.Context) error
	result chan error
}

// Manager owns the local cart and serializes every cart operation on its worker.
type Manager struct {
	backend  Backend
	session  Session
	notifier notify.Notifier
	logger   *slog.Logger

	ops   chan *op
	stale chan struct{}
	done  chan struct{}

	mu      sync.RWMutex
	items   []api.CartItem
	loading bool
}

// NewManager returns a Manager with an empty cart; start it with Run.
func NewManager(backend Backend, session Session, notifier notify.Notifier, logger *slog.Logger) *Manager {
	return &Manager{
		backend:  backend,
		session:  session,
		notifier: notifier,
		logger:   logger.With("component", "cart"),
		ops:      make(chan *op),
		stale:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		items:    []api.CartItem{},
	}
}

// Run executes queued operations until ctx is cancelled. It must be running for
// any other method except Snapshot and MarkStale to make progress.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.done)
	m.logger.DebugContext(ctx, "Cart worker started")
	for {
		select {
		case <-ctx.Done():
			m.logger.DebugContext(ctx, "Cart worker stopped")
			return ctx.Err()
		case o := <-m.ops:
			if err := o.ctx.Err(); err != nil {
				o.result <- err
				continue
			}
			o.result <- o.run(o.ctx)
		case <-m.stale:
			_ = m.refresh(ctx)
		}
	}
}

// MarkStale schedules a refresh without waiting for it. It never blocks, so it is
// safe to call from session listeners, including during a backend call.
func (m *Manager) MarkStale() {
	select {
	case m.stale <- struct{}{}:
	default:
	}
}

// Snapshot returns the current items and their derived totals.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]api.CartItem, len(m.items))
	copy(items, m.items)
	return Snapshot{
		Items:      items,
		TotalItems: TotalItems(items),
		TotalPrice: TotalPrice(items),
		Loading:    m.loading,
	}
}

// Refresh replaces the local cart with the backend's. Without a session the cart is emptied.
// On failure the previous items are kept.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.submit(ctx, m.refresh)
}

// AddItem adds quantity units of a product; a zero or negative quantity means one.
func (m *Manager) AddItem(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	return m.submit(ctx, func(ctx context.Context) error {
		if !m.session.Authenticated() {
			m.notifier.Notify(ctx, notify.Failure("Login Required", "Please login to add items to cart"))
			return ErrLoginRequired
		}
		return m.mutate(ctx, "add item",
			func(ctx context.Context) error { return m.backend.AddToCart(ctx, productID, quantity) },
			notify.Info("Added to Cart", "Item successfully added to your cart"),
			notify.Failure("Error", "Failed to add item to cart"),
			"product_id", productID, "quantity", quantity)
	})
}

// UpdateItem sets a line's quantity. The quantity is forwarded unchecked; the backend decides
// what zero or negative values mean.
func (m *Manager) UpdateItem(ctx context.Context, productID int64, quantity int) error {
	return m.submit(ctx, func(ctx context.Context) error {
		return m.mutate(ctx, "update item",
			func(ctx context.Context) error { return m.backend.UpdateCartItem(ctx, productID, quantity) },
			notify.Notice{},
			notify.Failure("Error", "Failed to update cart item"),
			"product_id", productID, "quantity", quantity)
	})
}

// RemoveItem deletes a line.
func (m *Manager) RemoveItem(ctx context.Context, productID int64) error {
	return m.submit(ctx, func(ctx context.Context) error {
		return m.mutate(ctx, "remove item",
			func(ctx context.Context) error { return m.backend.RemoveCartItem(ctx, productID) },
			notify.Info("Removed from Cart", "Item removed from your cart"),
			notify.Failure("Error", "Failed to remove item from cart"),
			"product_id", productID)
	})
}

// Clear deletes every line.
func (m *Manager) Clear(ctx context.Context) error {
	return m.submit(ctx, func(ctx context.Context) error {
		return m.mutate(ctx, "clear cart",
			m.backend.ClearCart,
			notify.Info("Cart Cleared", "All items removed from cart"),
			notify.Failure("Error", "Failed to clear cart"))
	})
}

// submit hands fn to the worker and waits for its result.
func (m *Manager) submit(ctx context.Context, fn func(ctx context.Context) error) error {
	o := &op{ctx: ctx, run: fn, result: make(chan error, 1)}
	select {
	case m.ops <- o:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
	select {
	case err := <-o.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutate runs call, then refreshes. Local state is never touched before the backend confirms.
func (m *Manager) mutate(ctx context.Context, action string, call func(ctx context.Context) error, success, failure notify.Notice, attrs ...any) error {
	ctx, span := tracer.Start(ctx, "cart "+action)
	defer span.End()
	// backend client logs for this operation carry the action too
	ctx = logctx.AppendCtx(ctx, slog.String("cart_action", action))

	if err := call(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend call failed")
		m.logger.ErrorContext(ctx, "Failed to "+action, append(attrs, "error", err)...)
		m.notifier.Notify(ctx, failure)
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	refreshErr := m.refresh(ctx)
	if success.Title != "" {
		m.notifier.Notify(ctx, success)
	}
	if refreshErr != nil {
		span.SetStatus(codes.Error, "refresh failed")
		return fmt.Errorf("%w after %s: %w", ErrRefreshFailed, action, refreshErr)
	}
	m.logger.DebugContext(ctx, "Cart "+action+" done", attrs...)
	return nil
}

// refresh must only run on the worker.
func (m *Manager) refresh(ctx context.Context) error {
	if !m.session.Authenticated() {
		m.setItems([]api.CartItem{})
		return nil
	}
	m.setLoading(true)
	defer m.setLoading(false)

	items, err := m.backend.Cart(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to fetch cart", "error", err)
		m.notifier.Notify(ctx, notify.Failure("Error", "Failed to load cart items"))
		return fmt.Errorf("failed to fetch cart: %w", err)
	}
	m.setItems(items)
	return nil
}

func (m *Manager) setItems(items []api.CartItem) {
	if items == nil {
		items = []api.CartItem{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = loading
}
