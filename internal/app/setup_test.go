package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/storefront/internal/api"
	"github.com/abgdnv/storefront/internal/api/apitest"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/notify"
	"github.com/abgdnv/storefront/internal/session"
	pkgconfig "github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var products = []api.Product{
	{ID: 1, Name: "Premium Wireless Headphones", Price: 19.99, Category: "Electronics", Stock: 25},
	{ID: 2, Name: "Ceramic Coffee Mug", Price: 24.99, Category: "Home & Kitchen", Stock: 40},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Backend = pkgconfig.HTTPClientConfig{BaseURL: baseURL, Timeout: 2 * time.Second}
	cfg.Notices.Limit = 20
	cfg.Nats.Subject = "test.notices"
	return cfg
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []messaging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messaging.Event(nil), p.events...)
}

type stack struct {
	backend   *apitest.Backend
	deps      *Dependencies
	handler   http.Handler
	publisher *recordingPublisher
}

func startStack(t *testing.T) *stack {
	t.Helper()
	backend := apitest.NewBackend(products)
	t.Cleanup(backend.Close)
	backend.AddUser("ann@example.com", "secret")

	publisher := &recordingPublisher{}
	deps, err := SetupDependencies(testConfig(backend.URL), session.NewMemoryStore(""), publisher, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = deps.Cart.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &stack{backend: backend, deps: deps, handler: SetupHttpHandler(deps), publisher: publisher}
}

func (s *stack) call(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, httptest.NewRequest(method, target, reader))
	return rr
}

func decodeSnapshot(t *testing.T, rr *httptest.ResponseRecorder) cart.Snapshot {
	t.Helper()
	var snap cart.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	return snap
}

func noticeTitles(t *testing.T, rr *httptest.ResponseRecorder) []string {
	t.Helper()
	var notices []notify.Notice
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &notices))
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Title)
	}
	return out
}

func TestStorefront_ShoppingFlow(t *testing.T) {
	s := startStack(t)

	// given no session, adding is refused locally
	calls := s.backend.Calls()
	rr := s.call(t, http.MethodPost, "/api/v1/cart/items", `{"product_id": 1}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, calls, s.backend.Calls())
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	// when logging in
	rr = s.call(t, http.MethodPost, "/api/v1/session", `{"email": "ann@example.com", "password": "secret"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, s.deps.Session.Authenticated())

	// then items can be added and updated
	rr = s.call(t, http.MethodPost, "/api/v1/cart/items", `{"product_id": 1, "quantity": 1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decodeSnapshot(t, rr).TotalItems)

	rr = s.call(t, http.MethodPut, "/api/v1/cart/items/1", `{"quantity": 3}`)
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decodeSnapshot(t, rr)
	assert.Equal(t, 3, snap.TotalItems)
	assert.InDelta(t, 59.97, snap.TotalPrice, 1e-9)

	// and the backend's own validation is surfaced without touching local state
	rr = s.call(t, http.MethodPut, "/api/v1/cart/items/1", `{"quantity": 0}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 3, s.deps.Cart.Snapshot().TotalItems)

	// and checkout empties the cart
	rr = s.call(t, http.MethodPost, "/api/v1/orders", `{"shipping_address": "1 Main St", "payment_method": "card"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Empty(t, s.deps.Cart.Snapshot().Items)

	rr = s.call(t, http.MethodGet, "/api/v1/notices", "")
	assert.Equal(t, []string{"Login Required", "Added to Cart", "Error"}, noticeTitles(t, rr))

	published := s.publisher.Events()
	require.Len(t, published, 3)
	assert.Equal(t, "test.notices", published[0].Subject())
}

func TestStorefront_RevokedTokenExpiresSession(t *testing.T) {
	// given a logged in shopper with one item
	s := startStack(t)
	require.Equal(t, http.StatusOK, s.call(t, http.MethodPost, "/api/v1/session", `{"email": "ann@example.com", "password": "secret"}`).Code)
	require.Equal(t, http.StatusOK, s.call(t, http.MethodPost, "/api/v1/cart/items", `{"product_id": 2, "quantity": 2}`).Code)
	s.call(t, http.MethodGet, "/api/v1/notices", "")

	// when the backend revokes the token
	s.backend.Revoke("token-ann@example.com")
	rr := s.call(t, http.MethodPost, "/api/v1/cart/refresh", "")

	// then the session is dropped and the cart empties
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, s.deps.Session.Authenticated())
	require.Eventually(t, func() bool {
		return len(s.deps.Cart.Snapshot().Items) == 0
	}, time.Second, 5*time.Millisecond)
	titles := noticeTitles(t, s.call(t, http.MethodGet, "/api/v1/notices", ""))
	assert.Contains(t, titles, "Session Expired")
}

func TestStorefront_ListingFallsBack(t *testing.T) {
	// given
	s := startStack(t)
	s.backend.Fail.Store(true)

	// when
	rr := s.call(t, http.MethodGet, "/api/v1/products?category=electronics&sort=price-low", "")

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	var state struct {
		Products []api.Product `json:"products"`
		Degraded bool          `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.True(t, state.Degraded)
	require.NotEmpty(t, state.Products)
	for _, p := range state.Products {
		assert.Equal(t, "electronics", p.CategorySlug())
	}
	assert.Equal(t, http.StatusServiceUnavailable, s.call(t, http.MethodGet, "/readyz", "").Code)
}

func TestNewTokenStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.SessionConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.SessionConfig{Store: config.SessionStoreMemory}},
		{name: "file", cfg: config.SessionConfig{Store: config.SessionStoreFile, File: filepath.Join(t.TempDir(), "token")}},
		{name: "redis", cfg: config.SessionConfig{Store: config.SessionStoreRedis, Profile: "ann", Redis: pkgconfig.RedisConfig{URL: "redis://" + mr.Addr()}}},
		{name: "unreachable redis", cfg: config.SessionConfig{Store: config.SessionStoreRedis, Profile: "ann", Redis: pkgconfig.RedisConfig{URL: "redis://127.0.0.1:1"}}, wantErr: true},
		{name: "unknown", cfg: config.SessionConfig{Store: "cookie"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeFn, err := NewTokenStore(ctx, tt.cfg)
			require.NotNil(t, closeFn)
			defer func() { _ = closeFn() }()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			require.NoError(t, store.Save(ctx, "tok"))
			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok", got)
		})
	}
}
