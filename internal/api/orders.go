package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// CreateOrder places an order for the current cart. POST /orders
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "orders", nil, req, &raw); err != nil {
		return nil, err
	}
	var o Order
	if err := unwrapOne(raw, "order", &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &o, nil
}

// Orders lists the user's orders. GET /orders
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "orders", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Orders == nil {
		return []Order{}, nil
	}
	return resp.Orders, nil
}

// Order fetches one order. GET /orders/{id}
func (c *Client) Order(ctx context.Context, id int64) (*Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("orders/%d", id), nil, nil, &raw); err != nil {
		return nil, err
	}
	var o Order
	if err := unwrapOne(raw, "order", &o); err != nil {
		return nil, fmt.Errorf("decode order %d: %w", id, err)
	}
	return &o, nil
}
