package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type productsResponse struct {
	Products []Product `json:"products"`
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// ListProducts fetches the products matching q. GET /products
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]Product, error) {
	var resp productsResponse
	if err := c.do(ctx, http.MethodGet, "products", q.values(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Products == nil {
		return []Product{}, nil
	}
	return resp.Products, nil
}

// FeaturedProducts fetches the featured selection. GET /products/featured
func (c *Client) FeaturedProducts(ctx context.Context) ([]Product, error) {
	var resp productsResponse
	if err := c.do(ctx, http.MethodGet, "products/featured", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Products == nil {
		return []Product{}, nil
	}
	return resp.Products, nil
}

// Product fetches a single product. GET /products/{id}
func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("products/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	var p Product
	if err := unwrapOne(raw, "product", &p); err != nil {
		return nil, fmt.Errorf("decode product %d: %w", id, err)
	}
	return &p, nil
}

// Categories fetches the category labels known to the backend. GET /products/categories
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var resp struct {
		Categories []string `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "products/categories", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}
