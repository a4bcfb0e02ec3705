// Package api is a typed client for the storefront backend's REST contract.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/abgdnv/storefront/pkg/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// Credentials supplies the bearer token and is told which token the backend rejected.
type Credentials interface {
	Token() string
	Expire(ctx context.Context, token string)
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	credentials Credentials
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	transport http.RoundTripper
	breaker   *config.CircuitBreakerConfig
}

// WithTransport replaces the base transport (default http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.transport = rt
	}
}

// WithCircuitBreaker guards the transport with a circuit breaker when cfg.Enabled is set.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig) Option {
	return func(o *clientOptions) {
		o.breaker = &cfg
	}
}

// NewClient creates a backend client rooted at cfg.BaseURL.
func NewClient(cfg config.HTTPClientConfig, credentials Credentials, logger *slog.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL '%s': %w", cfg.BaseURL, err)
	}
	o := clientOptions{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	logger = logger.With("component", "api")
	var transport http.RoundTripper = otelhttp.NewTransport(o.transport)
	if o.breaker != nil && o.breaker.Enabled {
		transport = newBreakerTransport(transport, *o.breaker, logger)
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		credentials: credentials,
		logger:      logger,
	}, nil
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.credentials.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return ErrCircuitOpen
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.WarnContext(ctx, "Backend rejected credentials, expiring session", "method", method, "path", path)
		c.credentials.Expire(ctx, token)
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Method:  method,
			Path:    path,
			Code:    resp.StatusCode,
			Message: errorMessage(resp.Body),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts {"error": ...} or {"message": ...} from an error body.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

// unwrapOne decodes either {"<key>": {...}} or a bare object into out.
func unwrapOne(raw json.RawMessage, key string, out any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if inner, ok := envelope[key]; ok {
			return json.Unmarshal(inner, out)
		}
	}
	return json.Unmarshal(raw, out)
}

// Ping checks that the backend answers a minimal catalog request.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "products", url.Values{"limit": {"1"}}, nil, nil)
}
