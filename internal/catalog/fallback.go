package catalog

import (
	"slices"

	"github.com/abgdnv/storefront/internal/api"
)

var fallbackProducts = []api.Product{
	{ID: 1, Name: "Premium Wireless Headphones", Description: "High-quality wireless headphones with noise cancellation", Price: 199.99, ImageURL: "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400", Category: "Electronics", Stock: 25, Rating: 4.8, ReviewsCount: 127},
	{ID: 2, Name: "Smart Fitness Watch", Description: "Track your health and fitness with this advanced smartwatch", Price: 299.99, ImageURL: "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=400", Category: "Electronics", Stock: 15, Rating: 4.6, ReviewsCount: 89},
	{ID: 3, Name: "Organic Cotton T-Shirt", Description: "Comfortable and sustainable organic cotton t-shirt", Price: 29.99, ImageURL: "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=400", Category: "Fashion", Stock: 50, Rating: 4.4, ReviewsCount: 203},
	{ID: 4, Name: "Minimalist Backpack", Description: "Sleek and functional backpack for everyday use", Price: 79.99, ImageURL: "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=400", Category: "Accessories", Stock: 32, Rating: 4.7, ReviewsCount: 156},
	{ID: 5, Name: "Wireless Bluetooth Speaker", Description: "Portable speaker with rich, immersive sound", Price: 89.99, ImageURL: "https://images.unsplash.com/photo-1608043152269-423dbba4e7e1?w=400", Category: "Electronics", Stock: 18, Rating: 4.5, ReviewsCount: 94},
	{ID: 6, Name: "Ceramic Coffee Mug", Description: "Handcrafted ceramic mug perfect for your morning coffee", Price: 24.99, ImageURL: "https://images.unsplash.com/photo-1514228742587-6b1558fcf93a?w=400", Category: "Home & Kitchen", Stock: 40, Rating: 4.3, ReviewsCount: 67},
	{ID: 7, Name: "Ergonomic Desk Chair", Description: "Comfortable office chair with lumbar support", Price: 249.99, ImageURL: "https://images.unsplash.com/photo-1586023492125-27b2c045efd7?w=400", Category: "Furniture", Stock: 8, Rating: 4.9, ReviewsCount: 178},
	{ID: 8, Name: "Stainless Steel Water Bottle", Description: "Insulated water bottle that keeps drinks cold for 24 hours", Price: 34.99, ImageURL: "https://images.unsplash.com/photo-1602143407151-7111542de6e8?w=400", Category: "Sports & Outdoors", Stock: 60, Rating: 4.6, ReviewsCount: 112},
	{ID: 9, Name: "Designer Sunglasses", Description: "Stylish UV protection sunglasses", Price: 149.99, ImageURL: "https://images.unsplash.com/photo-1572635196237-14b3f281503f?w=400", Category: "Accessories", Stock: 22, Rating: 4.2, ReviewsCount: 73},
	{ID: 10, Name: "Laptop Stand", Description: "Adjustable laptop stand for ergonomic working", Price: 59.99, ImageURL: "https://images.unsplash.com/photo-1527864550417-7fd91fc51a46?w=400", Category: "Electronics", Stock: 35, Rating: 4.1, ReviewsCount: 94},
}

// FallbackProducts returns a copy of the built-in demo catalog shown when the backend is unreachable.
func FallbackProducts() []api.Product {
	return slices.Clone(fallbackProducts)
}
