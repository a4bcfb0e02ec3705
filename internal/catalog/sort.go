package catalog

import (
	"slices"
	"sync"

	"github.com/abgdnv/storefront/internal/api"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortKey string

const (
	SortName      SortKey = "name"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
)

// collate.Collator is not safe for concurrent use.
var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English, collate.IgnoreCase)
)

func compareNames(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// Sort returns a sorted copy of products. Ties keep their input order and an
// unknown key returns the copy unchanged.
func Sort(products []api.Product, key SortKey) []api.Product {
	sorted := slices.Clone(products)
	if sorted == nil {
		sorted = []api.Product{}
	}

	var cmp func(a, b api.Product) int
	switch key {
	case SortName:
		cmp = func(a, b api.Product) int { return compareNames(a.Name, b.Name) }
	case SortPriceLow:
		cmp = func(a, b api.Product) int { return compareFloat(a.Price, b.Price) }
	case SortPriceHigh:
		cmp = func(a, b api.Product) int { return compareFloat(b.Price, a.Price) }
	case SortRating:
		cmp = func(a, b api.Product) int { return compareFloat(b.Rating, a.Rating) }
	case SortNewest:
		cmp = func(a, b api.Product) int { return compareInt(b.ID, a.ID) }
	default:
		return sorted
	}
	slices.SortStableFunc(sorted, cmp)
	return sorted
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
