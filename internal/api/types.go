package api

import (
	"regexp"
	"strings"
)

// Product is the backend's catalog entry. The client never mutates it.
type Product struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	ImageURL     string  `json:"image_url"`
	Category     string  `json:"category"`
	Stock        int     `json:"stock"`
	Rating       float64 `json:"rating"`
	ReviewsCount int     `json:"reviews_count"`
}

// InStock reports whether the product can be added to a cart.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// LowStock reports whether only a few units are left.
func (p Product) LowStock() bool {
	return p.Stock > 0 && p.Stock < 10
}

// CategorySlug returns the normalized category used in filters and URLs.
func (p Product) CategorySlug() string {
	return Slug(p.Category)
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug lowercases s and replaces every whitespace run with a hyphen ("Home & Kitchen" -> "home-&-kitchen").
func Slug(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(s), "-")
}

// CartItem pairs a quantity with the product snapshot the backend returned.
type CartItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

type User struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type Order struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	Status    string     `json:"status"`
	CreatedAt string     `json:"created_at"`
}

// ProductQuery holds the optional listing parameters. Zero values are omitted from the request.
type ProductQuery struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OrderRequest struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
}
