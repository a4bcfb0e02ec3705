package catalog

import "github.com/abgdnv/storefront/internal/api"

// Option is a value/label pair for a selection menu.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var categoryLabels = []string{
	"Electronics",
	"Fashion",
	"Accessories",
	"Home & Kitchen",
	"Furniture",
	"Sports & Outdoors",
}

// Categories lists the category menu. Values are slugs of the labels so they
// compare equal to Product.CategorySlug.
func Categories() []Option {
	out := []Option{{Value: AllCategories, Label: "All Categories"}}
	for _, label := range categoryLabels {
		out = append(out, Option{Value: api.Slug(label), Label: label})
	}
	return out
}

func SortOptions() []Option {
	return []Option{
		{Value: string(SortName), Label: "Name A-Z"},
		{Value: string(SortPriceLow), Label: "Price: Low to High"},
		{Value: string(SortPriceHigh), Label: "Price: High to Low"},
		{Value: string(SortRating), Label: "Highest Rated"},
		{Value: string(SortNewest), Label: "Newest First"},
	}
}
