package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abgdnv/storefront/internal/api"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/notify"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCart struct {
	mock.Mock
}

func (m *mockCart) Snapshot() cart.Snapshot {
	return m.Called().Get(0).(cart.Snapshot)
}

func (m *mockCart) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockCart) AddItem(ctx context.Context, productID int64, quantity int) error {
	return m.Called(ctx, productID, quantity).Error(0)
}

func (m *mockCart) UpdateItem(ctx context.Context, productID int64, quantity int) error {
	return m.Called(ctx, productID, quantity).Error(0)
}

func (m *mockCart) RemoveItem(ctx context.Context, productID int64) error {
	return m.Called(ctx, productID).Error(0)
}

func (m *mockCart) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Apply(ctx context.Context, f catalog.Filter) catalog.State {
	return m.Called(ctx, f).Get(0).(catalog.State)
}

func (m *mockCatalog) Featured(ctx context.Context) ([]api.Product, bool) {
	args := m.Called(ctx)
	return args.Get(0).([]api.Product), args.Bool(1)
}

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Authenticated() bool {
	return m.Called().Bool(0)
}

func (m *mockSession) Login(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockSession) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Login(ctx context.Context, email, password string) (*api.LoginResult, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(*api.LoginResult)
	return res, args.Error(1)
}

func (m *mockBackend) Register(ctx context.Context, req api.RegisterRequest) (*api.LoginResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*api.LoginResult)
	return res, args.Error(1)
}

func (m *mockBackend) Product(ctx context.Context, id int64) (*api.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*api.Product)
	return p, args.Error(1)
}

func (m *mockBackend) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).([]string)
	return c, args.Error(1)
}

func (m *mockBackend) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockBackend) Profile(ctx context.Context) (*api.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).(*api.User)
	return u, args.Error(1)
}

func (m *mockBackend) CreateOrder(ctx context.Context, req api.OrderRequest) (*api.Order, error) {
	args := m.Called(ctx, req)
	o, _ := args.Get(0).(*api.Order)
	return o, args.Error(1)
}

func (m *mockBackend) Orders(ctx context.Context) ([]api.Order, error) {
	args := m.Called(ctx)
	o, _ := args.Get(0).([]api.Order)
	return o, args.Error(1)
}

func (m *mockBackend) Order(ctx context.Context, id int64) (*api.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*api.Order)
	return o, args.Error(1)
}

func (m *mockBackend) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixture struct {
	cart     *mockCart
	catalog  *mockCatalog
	session  *mockSession
	backend  *mockBackend
	recorder *notify.Recorder
	router   http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		cart:     &mockCart{},
		catalog:  &mockCatalog{},
		session:  &mockSession{},
		backend:  &mockBackend{},
		recorder: notify.NewRecorder(10),
	}
	h := NewHandler(f.cart, f.catalog, f.session, f.backend, f.recorder, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	f.router = r
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

var snapshot = cart.Snapshot{
	Items:      []api.CartItem{{ProductID: 1, Quantity: 3, Product: api.Product{ID: 1, Price: 19.99}}},
	TotalItems: 3,
	TotalPrice: 59.97,
}

func TestHandler_AddItem(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(f *fixture)
		wantStatus int
		wantBody   string
	}{
		{
			name: "given valid body, when adding, then snapshot is returned",
			body: `{"product_id": 1, "quantity": 3}`,
			setup: func(f *fixture) {
				f.cart.On("AddItem", mock.Anything, int64(1), 3).Return(nil)
				f.cart.On("Snapshot").Return(snapshot)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"total_items":3`,
		},
		{
			name:       "given missing product id, then validation fails",
			body:       `{"quantity": 3}`,
			setup:      func(*fixture) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `"ProductID":"failed on rule: required"`,
		},
		{
			name:       "given malformed json, then bad request",
			body:       `{"product_id":`,
			setup:      func(*fixture) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `Invalid request body`,
		},
		{
			name: "given no session, then unauthorized",
			body: `{"product_id": 1}`,
			setup: func(f *fixture) {
				f.cart.On("AddItem", mock.Anything, int64(1), 0).Return(cart.ErrLoginRequired)
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `Please login to add items to cart`,
		},
		{
			name: "given backend rejects with 400, then its message is passed through",
			body: `{"product_id": 1, "quantity": -2}`,
			setup: func(f *fixture) {
				f.cart.On("AddItem", mock.Anything, int64(1), -2).
					Return(fmt.Errorf("failed to add item: %w", &api.StatusError{Code: 400, Message: "invalid quantity"}))
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `invalid quantity`,
		},
		{
			name: "given refresh fails after add, then stale snapshot is still returned",
			body: `{"product_id": 1, "quantity": 1}`,
			setup: func(f *fixture) {
				f.cart.On("AddItem", mock.Anything, int64(1), 1).Return(fmt.Errorf("%w: boom", cart.ErrRefreshFailed))
				f.cart.On("Snapshot").Return(snapshot)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"total_items":3`,
		},
		{
			name: "given breaker open, then service unavailable",
			body: `{"product_id": 1, "quantity": 1}`,
			setup: func(f *fixture) {
				f.cart.On("AddItem", mock.Anything, int64(1), 1).Return(api.ErrCircuitOpen)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `Backend temporarily unavailable`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			f := newFixture()
			tt.setup(f)

			// when
			rr := f.do(http.MethodPost, "/api/v1/cart/items", tt.body)

			// then
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
			f.cart.AssertExpectations(t)
		})
	}
}

func TestHandler_UpdateItem(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		setup      func(f *fixture)
		wantStatus int
	}{
		{
			name:   "zero quantity is forwarded unchanged",
			target: "/api/v1/cart/items/7",
			body:   `{"quantity": 0}`,
			setup: func(f *fixture) {
				f.cart.On("UpdateItem", mock.Anything, int64(7), 0).Return(nil)
				f.cart.On("Snapshot").Return(cart.Snapshot{Items: []api.CartItem{}})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing quantity is rejected",
			target:     "/api/v1/cart/items/7",
			body:       `{}`,
			setup:      func(*fixture) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid product id",
			target:     "/api/v1/cart/items/abc",
			body:       `{"quantity": 1}`,
			setup:      func(*fixture) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "backend 5xx becomes bad gateway",
			target: "/api/v1/cart/items/7",
			body:   `{"quantity": 2}`,
			setup: func(f *fixture) {
				f.cart.On("UpdateItem", mock.Anything, int64(7), 2).Return(&api.StatusError{Code: 500})
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			rr := f.do(http.MethodPut, tt.target, tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			f.cart.AssertExpectations(t)
		})
	}
}

func TestHandler_RemoveAndClear(t *testing.T) {
	// given
	f := newFixture()
	f.cart.On("RemoveItem", mock.Anything, int64(3)).Return(nil)
	f.cart.On("Clear", mock.Anything).Return(api.ErrUnauthorized)
	f.cart.On("Snapshot").Return(cart.Snapshot{Items: []api.CartItem{}})

	// when
	removed := f.do(http.MethodDelete, "/api/v1/cart/items/3", "")
	cleared := f.do(http.MethodDelete, "/api/v1/cart", "")

	// then
	assert.Equal(t, http.StatusOK, removed.Code)
	assert.Equal(t, http.StatusUnauthorized, cleared.Code)
	f.cart.AssertExpectations(t)
}

func TestHandler_ListProducts(t *testing.T) {
	// given
	f := newFixture()
	want := catalog.Filter{Search: "mug", Category: "home-&-kitchen", Sort: catalog.SortPriceLow}
	f.catalog.On("Apply", mock.Anything, want).Return(catalog.State{
		Filter:   want,
		Products: []api.Product{{ID: 6, Name: "Ceramic Coffee Mug"}},
		Degraded: true,
	})

	// when
	rr := f.do(http.MethodGet, "/api/v1/products?search=mug&category=home-%26-kitchen&sort=price-low", "")

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	var state catalog.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.True(t, state.Degraded)
	assert.Equal(t, want, state.Filter)
	require.Len(t, state.Products, 1)
	f.catalog.AssertExpectations(t)
}

func TestHandler_Options(t *testing.T) {
	f := newFixture()

	rr := f.do(http.MethodGet, "/api/v1/products/options", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"value":"home-&-kitchen"`)
	assert.Contains(t, rr.Body.String(), `"label":"Newest First"`)
}

func TestHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(f *fixture)
		wantStatus int
	}{
		{
			name: "given valid credentials, then session starts and cart is refreshed",
			body: `{"email": "ann@example.com", "password": "secret"}`,
			setup: func(f *fixture) {
				f.backend.On("Login", mock.Anything, "ann@example.com", "secret").
					Return(&api.LoginResult{Token: "tok", User: &api.User{ID: 1, Email: "ann@example.com"}}, nil)
				f.session.On("Login", mock.Anything, "tok").Return(nil)
				f.cart.On("Refresh", mock.Anything).Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "given wrong password, then backend 401 is passed on",
			body: `{"email": "ann@example.com", "password": "nope"}`,
			setup: func(f *fixture) {
				f.backend.On("Login", mock.Anything, "ann@example.com", "nope").Return(nil, api.ErrUnauthorized)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "given invalid email, then validation fails",
			body:       `{"email": "ann", "password": "secret"}`,
			setup:      func(*fixture) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			rr := f.do(http.MethodPost, "/api/v1/session", tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			f.backend.AssertExpectations(t)
			f.session.AssertExpectations(t)
			f.cart.AssertExpectations(t)
		})
	}
}

func TestHandler_Register(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		setup         func(f *fixture)
		wantStatus    int
		wantAuthState bool
	}{
		{
			name: "given backend issues a token, then session starts",
			body: `{"name": "Ann", "email": "ann@example.com", "password": "secret1"}`,
			setup: func(f *fixture) {
				f.backend.On("Register", mock.Anything, api.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "secret1"}).
					Return(&api.LoginResult{Token: "tok", User: &api.User{ID: 2, Email: "ann@example.com"}}, nil)
				f.session.On("Login", mock.Anything, "tok").Return(nil)
				f.cart.On("Refresh", mock.Anything).Return(nil)
			},
			wantStatus:    http.StatusCreated,
			wantAuthState: true,
		},
		{
			name: "given backend issues no token, then account is created without a session",
			body: `{"name": "Ann", "email": "ann@example.com", "password": "secret1"}`,
			setup: func(f *fixture) {
				f.backend.On("Register", mock.Anything, mock.Anything).Return(&api.LoginResult{User: &api.User{ID: 2}}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "given email already taken, then backend conflict is passed on",
			body: `{"name": "Ann", "email": "ann@example.com", "password": "secret1"}`,
			setup: func(f *fixture) {
				f.backend.On("Register", mock.Anything, mock.Anything).
					Return(nil, &api.StatusError{Code: http.StatusConflict, Message: "email already registered"})
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "given short password, then validation fails",
			body:       `{"name": "Ann", "email": "ann@example.com", "password": "123"}`,
			setup:      func(*fixture) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			rr := f.do(http.MethodPost, "/api/v1/session/register", tt.body)

			require.Equal(t, tt.wantStatus, rr.Code)
			if rr.Code == http.StatusCreated {
				var res sessionResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
				assert.Equal(t, tt.wantAuthState, res.Authenticated)
			}
			f.backend.AssertExpectations(t)
			f.session.AssertExpectations(t)
			f.cart.AssertExpectations(t)
		})
	}
}

func TestHandler_GetProduct(t *testing.T) {
	// given
	f := newFixture()
	f.backend.On("Product", mock.Anything, int64(4)).Return(&api.Product{ID: 4, Name: "Running Shoes"}, nil)
	f.backend.On("Product", mock.Anything, int64(99)).
		Return(nil, &api.StatusError{Code: http.StatusNotFound, Message: "product not found"})

	// when
	found := f.do(http.MethodGet, "/api/v1/products/4", "")
	missing := f.do(http.MethodGet, "/api/v1/products/99", "")
	invalid := f.do(http.MethodGet, "/api/v1/products/abc", "")

	// then
	require.Equal(t, http.StatusOK, found.Code)
	assert.Contains(t, found.Body.String(), `"name":"Running Shoes"`)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
	f.backend.AssertExpectations(t)
}

func TestHandler_BackendCategories(t *testing.T) {
	f := newFixture()
	f.backend.On("Categories", mock.Anything).Return([]string{"Electronics", "Sports"}, nil).Once()
	f.backend.On("Categories", mock.Anything).Return(nil, api.ErrCircuitOpen).Once()

	ok := f.do(http.MethodGet, "/api/v1/products/categories", "")
	open := f.do(http.MethodGet, "/api/v1/products/categories", "")

	require.Equal(t, http.StatusOK, ok.Code)
	assert.JSONEq(t, `{"categories": ["Electronics", "Sports"]}`, ok.Body.String())
	assert.Equal(t, http.StatusServiceUnavailable, open.Code)
}

func TestHandler_LogoutIgnoresBackendFailure(t *testing.T) {
	// given
	f := newFixture()
	f.session.On("Authenticated").Return(true)
	f.backend.On("Logout", mock.Anything).Return(&api.StatusError{Code: 500})
	f.session.On("Logout", mock.Anything).Return(nil)
	f.cart.On("Refresh", mock.Anything).Return(nil)

	// when
	rr := f.do(http.MethodDelete, "/api/v1/session", "")

	// then
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"authenticated": false}`, rr.Body.String())
	f.session.AssertExpectations(t)
}

func TestHandler_Checkout(t *testing.T) {
	// given
	f := newFixture()
	req := api.OrderRequest{ShippingAddress: "1 Main St", PaymentMethod: "card"}
	f.backend.On("CreateOrder", mock.Anything, req).Return(&api.Order{ID: 12, Total: 59.97, Status: "pending"}, nil)
	f.cart.On("Refresh", mock.Anything).Return(nil)

	// when
	rr := f.do(http.MethodPost, "/api/v1/orders", `{"shipping_address": "1 Main St", "payment_method": "card"}`)

	// then
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":12`)
	f.backend.AssertExpectations(t)
	f.cart.AssertExpectations(t)
}

func TestHandler_Notices(t *testing.T) {
	// given
	f := newFixture()
	f.recorder.Notify(context.Background(), notify.Info("Cart Cleared", "All items removed from cart"))

	// when
	first := f.do(http.MethodGet, "/api/v1/notices", "")
	second := f.do(http.MethodGet, "/api/v1/notices", "")

	// then
	assert.Contains(t, first.Body.String(), "Cart Cleared")
	assert.JSONEq(t, `[]`, second.Body.String())
}

func TestHandler_Probes(t *testing.T) {
	f := newFixture()
	f.backend.On("Ping", mock.Anything).Return(api.ErrCircuitOpen).Once()
	f.backend.On("Ping", mock.Anything).Return(nil).Once()

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/livez", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "").Code)
}
