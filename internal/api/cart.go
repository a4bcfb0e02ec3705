package api

import (
	"context"
	"fmt"
	"net/http"
)

type cartResponse struct {
	Items []CartItem `json:"items"`
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

// Cart fetches the authenticated user's cart. GET /cart
func (c *Client) Cart(ctx context.Context) ([]CartItem, error) {
	var resp cartResponse
	if err := c.do(ctx, http.MethodGet, "cart", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []CartItem{}, nil
	}
	return resp.Items, nil
}

// AddToCart adds quantity units of a product. POST /cart/add
func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int) error {
	return c.do(ctx, http.MethodPost, "cart/add", nil, addToCartRequest{ProductID: productID, Quantity: quantity}, nil)
}

// UpdateCartItem sets the quantity of a cart line. PUT /cart/update/{productId}
// The quantity is sent as-is; the backend owns its validation.
func (c *Client) UpdateCartItem(ctx context.Context, productID int64, quantity int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("cart/update/%d", productID), nil, updateCartRequest{Quantity: quantity}, nil)
}

// RemoveCartItem deletes a cart line. DELETE /cart/remove/{productId}
func (c *Client) RemoveCartItem(ctx context.Context, productID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("cart/remove/%d", productID), nil, nil, nil)
}

// ClearCart deletes every cart line. DELETE /cart/clear
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "cart/clear", nil, nil, nil)
}
