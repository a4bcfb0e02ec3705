package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredentials struct {
	mu      sync.Mutex
	token    string
	expired  int
	rejected []string
}

func (f *fakeCredentials) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCredentials) Expire(_ context.Context, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, token)
	f.token = ""
	f.expired++
}

func newTestClient(t *testing.T, url string, creds Credentials, opts ...Option) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewClient(config.HTTPClientConfig{BaseURL: url, Timeout: 2 * time.Second}, creds, logger, opts...)
	require.NoError(t, err)
	return c
}

func TestClient_ListProducts_Query(t *testing.T) {
	testCases := []struct {
		name          string
		query         ProductQuery
		expectedQuery string
	}{
		{name: "no filters", query: ProductQuery{}, expectedQuery: ""},
		{name: "search only", query: ProductQuery{Search: "watch"}, expectedQuery: "search=watch"},
		{name: "all dimensions", query: ProductQuery{Search: "a b", Category: "electronics", Page: 2, Limit: 20},
			expectedQuery: "category=electronics&limit=20&page=2&search=a+b"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var gotPath, gotQuery string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotQuery = r.URL.RawQuery
				_ = json.NewEncoder(w).Encode(map[string]any{"products": []Product{{ID: 1, Name: "Watch"}}})
			}))
			defer srv.Close()
			client := newTestClient(t, srv.URL+"/api", &fakeCredentials{})

			// when
			products, err := client.ListProducts(context.Background(), tc.query)

			// then
			require.NoError(t, err)
			assert.Equal(t, "/api/products", gotPath)
			assert.Equal(t, tc.expectedQuery, gotQuery)
			assert.Equal(t, []Product{{ID: 1, Name: "Watch"}}, products)
		})
	}
}

func TestClient_BearerHeader(t *testing.T) {
	testCases := []struct {
		name     string
		token    string
		expected string
	}{
		{name: "with session", token: "abc", expected: "Bearer abc"},
		{name: "without session", token: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				_, _ = w.Write([]byte(`{"items":[]}`))
			}))
			defer srv.Close()
			client := newTestClient(t, srv.URL, &fakeCredentials{token: tc.token})

			items, err := client.Cart(context.Background())

			require.NoError(t, err)
			assert.Empty(t, items)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestClient_UnauthorizedExpiresSession(t *testing.T) {
	// given
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	creds := &fakeCredentials{token: "stale"}
	client := newTestClient(t, srv.URL, creds)

	// when
	err := client.AddToCart(context.Background(), 1, 1)

	// then
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, creds.expired)
	assert.Equal(t, []string{"stale"}, creds.rejected, "the token the request carried is reported")
	assert.Empty(t, creds.Token())
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"quantity must be positive"}`))
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL, &fakeCredentials{token: "t"})

	err := client.UpdateCartItem(context.Background(), 7, 0)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "quantity must be positive", se.Message)
	assert.Equal(t, "cart/update/7", se.Path)
}

func TestClient_RequestBodies(t *testing.T) {
	type captured struct {
		method string
		path   string
		body   map[string]any
	}
	var got captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = captured{method: r.Method, path: r.URL.Path}
		if r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL, &fakeCredentials{token: "t"})
	ctx := context.Background()

	require.NoError(t, client.AddToCart(ctx, 3, 2))
	assert.Equal(t, captured{http.MethodPost, "/cart/add", map[string]any{"product_id": float64(3), "quantity": float64(2)}}, got)

	require.NoError(t, client.UpdateCartItem(ctx, 3, 5))
	assert.Equal(t, captured{http.MethodPut, "/cart/update/3", map[string]any{"quantity": float64(5)}}, got)

	require.NoError(t, client.RemoveCartItem(ctx, 3))
	assert.Equal(t, captured{method: http.MethodDelete, path: "/cart/remove/3"}, got)

	require.NoError(t, client.ClearCart(ctx))
	assert.Equal(t, captured{method: http.MethodDelete, path: "/cart/clear"}, got)
}

func TestClient_ProductEnvelopes(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "wrapped", body: `{"product":{"id":4,"name":"Backpack"}}`},
		{name: "bare", body: `{"id":4,"name":"Backpack"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			client := newTestClient(t, srv.URL, &fakeCredentials{})

			p, err := client.Product(context.Background(), 4)

			require.NoError(t, err)
			assert.Equal(t, &Product{ID: 4, Name: "Backpack"}, p)
		})
	}
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	// given
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL, &fakeCredentials{}, WithCircuitBreaker(config.CircuitBreakerConfig{
		Enabled:             true,
		MaxRequests:         1,
		ConsecutiveFailures: 2,
		ErrorRatePercent:    100,
		OpenTimeout:         time.Minute,
	}))
	ctx := context.Background()

	// when
	for i := 0; i < 2; i++ {
		_, err := client.ListProducts(ctx, ProductQuery{})
		assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	}
	_, err := client.ListProducts(ctx, ProductQuery{})

	// then
	assert.ErrorIs(t, err, ErrCircuitOpen)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, hits)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "home-&-kitchen", Slug("Home & Kitchen"))
	assert.Equal(t, "sports-&-outdoors", Slug("Sports  &\tOutdoors"))
	assert.Equal(t, "electronics", Slug("Electronics"))
}
