package cart

import "github.com/abgdnv/storefront/internal/api"

// TotalItems is the sum of quantities.
func TotalItems(items []api.CartItem) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}

// TotalPrice is the sum of quantity × unit price.
func TotalPrice(items []api.CartItem) float64 {
	total := 0.0
	for _, it := range items {
		total += float64(it.Quantity) * it.Product.Price
	}
	return total
}
