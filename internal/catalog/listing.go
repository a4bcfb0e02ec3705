// Package catalog drives the product listing: filter state, client-side sorting
// and the offline fallback catalog.
package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/abgdnv/storefront/internal/api"
)

const featuredLimit = 8

// Source is the slice of the backend client the controller needs.
type Source interface {
	ListProducts(ctx context.Context, q api.ProductQuery) ([]api.Product, error)
	FeaturedProducts(ctx context.Context) ([]api.Product, error)
}

// State is what a listing view renders.
type State struct {
	Filter   Filter        `json:"filter"`
	Products []api.Product `json:"products"`
	Query    string        `json:"query"`
	// Degraded is set when Products came from the fallback catalog.
	Degraded bool `json:"degraded"`
	Loading  bool `json:"is_loading"`
}

// Controller holds the listing state shared by every viewer and reloads it when the filter changes.
type Controller struct {
	source Source
	logger *slog.Logger

	// loadMu serializes loads; mu guards the fields below.
	loadMu   sync.Mutex
	mu       sync.RWMutex
	filter   Filter
	products []api.Product
	degraded bool
	loading  bool
	gen      uint64
}

// NewController returns a Controller with the default filter and no products loaded.
func NewController(source Source, logger *slog.Logger) *Controller {
	return &Controller{
		source:   source,
		logger:   logger.With("component", "catalog"),
		filter:   DefaultFilter(),
		products: []api.Product{},
	}
}

// State returns a copy of the current listing.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Filter:   c.filter,
		Products: append([]api.Product{}, c.products...),
		Query:    c.filter.Values().Encode(),
		Degraded: c.degraded,
		Loading:  c.loading,
	}
}

// Load fetches the listing for the current filter. A backend failure is not
// returned: the fallback catalog is filtered locally and the state is marked degraded.
func (c *Controller) Load(ctx context.Context) State {
	c.mu.Lock()
	gen := c.begin()
	c.mu.Unlock()
	return c.load(ctx, gen)
}

// Apply replaces the whole filter and reloads. When Apply calls overlap, only
// the most recently issued one publishes its products.
func (c *Controller) Apply(ctx context.Context, f Filter) State {
	if f.Category == "" {
		f.Category = AllCategories
	}
	if f.Sort == "" {
		f.Sort = SortName
	}
	c.mu.Lock()
	c.filter = f
	gen := c.begin()
	c.mu.Unlock()
	return c.load(ctx, gen)
}

// begin issues the next load generation. Callers hold mu.
func (c *Controller) begin() uint64 {
	c.gen++
	return c.gen
}

// load runs the load numbered gen. Loads run one at a time; a load that is no
// longer the newest when its turn comes is skipped, so only the newest load ever
// sets the loading flag and it always clears it.
func (c *Controller) load(ctx context.Context, gen uint64) State {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return c.State()
	}
	f := c.filter
	c.loading = true
	c.mu.Unlock()

	products, degraded, err := c.fetch(ctx, f)

	c.mu.Lock()
	if gen == c.gen {
		c.loading = false
		// a caller that gave up leaves the shared listing as it was
		if err == nil {
			c.products = products
			c.degraded = degraded
		}
	}
	c.mu.Unlock()
	return c.State()
}

// fetch returns the sorted listing for f, or the fallback catalog when the backend
// fails. It only returns an error when ctx ended, which is not a backend failure.
func (c *Controller) fetch(ctx context.Context, f Filter) ([]api.Product, bool, error) {
	products, err := c.source.ListProducts(ctx, f.Query())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.logger.DebugContext(ctx, "Product load abandoned by caller", "error", err)
			return nil, false, ctxErr
		}
		c.logger.WarnContext(ctx, "Failed to load products, using fallback catalog", "filter", f.Values().Encode(), "error", err)
		return Sort(FilterProducts(FallbackProducts(), f), f.Sort), true, nil
	}
	c.logger.DebugContext(ctx, "Products loaded", "count", len(products))
	return Sort(products, f.Sort), false, nil
}

func (c *Controller) SetSearch(ctx context.Context, search string) State {
	return c.update(ctx, func(f *Filter) { f.Search = search })
}

func (c *Controller) SetCategory(ctx context.Context, category string) State {
	return c.update(ctx, func(f *Filter) { f.Category = category })
}

func (c *Controller) SetSort(ctx context.Context, key SortKey) State {
	return c.update(ctx, func(f *Filter) { f.Sort = key })
}

func (c *Controller) update(ctx context.Context, fn func(f *Filter)) State {
	c.mu.RLock()
	f := c.filter
	c.mu.RUnlock()
	fn(&f)
	return c.Apply(ctx, f)
}

// Featured returns up to eight highlighted products, or the first eight fallback
// products when the backend fails. The bool reports the fallback.
func (c *Controller) Featured(ctx context.Context) ([]api.Product, bool) {
	products, err := c.source.FeaturedProducts(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to load featured products, using fallback catalog", "error", err)
		return FallbackProducts()[:featuredLimit], true
	}
	if len(products) > featuredLimit {
		products = products[:featuredLimit]
	}
	if products == nil {
		products = []api.Product{}
	}
	return products, false
}
