package catalog

import (
	"net/url"
	"strings"

	"github.com/abgdnv/storefront/internal/api"
)

const (
	AllCategories = "all"

	paramSearch   = "search"
	paramCategory = "category"
	paramSort     = "sort"
)

// Filter is the user's listing selection. Category holds a slug or AllCategories.
type Filter struct {
	Search   string  `json:"search"`
	Category string  `json:"category"`
	Sort     SortKey `json:"sort"`
}

// DefaultFilter selects every category sorted by name.
func DefaultFilter() Filter {
	return Filter{Category: AllCategories, Sort: SortName}
}

// ParseFilter restores a filter from query parameters, falling back to defaults for missing keys.
func ParseFilter(v url.Values) Filter {
	f := DefaultFilter()
	f.Search = v.Get(paramSearch)
	if c := v.Get(paramCategory); c != "" {
		f.Category = c
	}
	if s := v.Get(paramSort); s != "" {
		f.Sort = SortKey(s)
	}
	return f
}

// Values encodes the filter as query parameters. An empty search and the all
// category are omitted; sort is always written.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set(paramSearch, f.Search)
	}
	if f.Category != "" && f.Category != AllCategories {
		v.Set(paramCategory, f.Category)
	}
	sort := f.Sort
	if sort == "" {
		sort = SortName
	}
	v.Set(paramSort, string(sort))
	return v
}

// Query is the backend request for this filter.
func (f Filter) Query() api.ProductQuery {
	q := api.ProductQuery{Search: f.Search}
	if f.Category != AllCategories {
		q.Category = f.Category
	}
	return q
}

// Match reports whether p passes the filter locally.
func (f Filter) Match(p api.Product) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	if f.Category != "" && f.Category != AllCategories && p.CategorySlug() != f.Category {
		return false
	}
	return true
}

// FilterProducts returns the products matching f in their original order.
func FilterProducts(products []api.Product, f Filter) []api.Product {
	out := make([]api.Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
