package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoToken is returned when a login or registration response carries no token.
var ErrNoToken = errors.New("backend response has no token")

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session token. POST /auth/login
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "auth/login", nil, loginRequest{Email: email, Password: password}, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, ErrNoToken
	}
	return &res, nil
}

// Register creates an account. POST /auth/register
// Backends that log the user in immediately return a token as well.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "auth/register", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout tells the backend to end the session. POST /auth/logout
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "auth/logout", nil, nil, nil)
}

// Profile fetches the authenticated user. GET /auth/profile
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "auth/profile", nil, nil, &raw); err != nil {
		return nil, err
	}
	var u User
	if err := unwrapOne(raw, "user", &u); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &u, nil
}
