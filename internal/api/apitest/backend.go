// Package apitest provides an in-memory storefront backend for tests.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/abgdnv/storefront/internal/api"
	"github.com/go-chi/chi/v5"
)

// Backend implements the backend contract over an in-memory catalog and per-token carts.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	products map[int64]api.Product
	order    []int64
	featured []int64
	carts    map[string][]api.CartItem
	users    map[string]string // email -> password
	tokens   map[string]bool

	// Fail makes every catalog call answer 503 when set.
	Fail atomic.Bool
	// FailCart makes every cart call answer 500 when set.
	FailCart atomic.Bool

	calls atomic.Int64
}

// NewBackend starts a backend seeded with products. Tokens listed in validTokens are accepted.
func NewBackend(products []api.Product, validTokens ...string) *Backend {
	b := &Backend{
		products: make(map[int64]api.Product),
		carts:    make(map[string][]api.CartItem),
		users:    make(map[string]string),
		tokens:   make(map[string]bool),
	}
	for _, p := range products {
		b.products[p.ID] = p
		b.order = append(b.order, p.ID)
	}
	for _, tok := range validTokens {
		b.tokens[tok] = true
	}
	b.Server = httptest.NewServer(b.routes())
	return b
}

// AddUser registers credentials accepted by /auth/login; the issued token is "token-<email>".
func (b *Backend) AddUser(email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = password
}

// SetFeatured sets the featured product ids.
func (b *Backend) SetFeatured(ids ...int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.featured = ids
}

// Revoke makes the backend reject token with 401.
func (b *Backend) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
}

// CartOf returns a copy of the cart stored for token.
func (b *Backend) CartOf(token string) []api.CartItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.CartItem(nil), b.carts[token]...)
}

// Calls returns the number of requests served.
func (b *Backend) Calls() int64 {
	return b.calls.Load()
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.calls.Add(1)
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/products", b.listProducts)
	r.Get("/products/featured", b.featuredProducts)
	r.Get("/products/categories", b.categories)
	r.Get("/products/{id}", b.product)
	r.Post("/auth/login", b.login)
	r.Post("/auth/register", b.register)
	r.Group(func(r chi.Router) {
		r.Use(b.requireToken)
		r.Post("/auth/logout", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		r.Get("/cart", b.getCart)
		r.Post("/cart/add", b.addToCart)
		r.Put("/cart/update/{id}", b.updateCart)
		r.Delete("/cart/remove/{id}", b.removeFromCart)
		r.Delete("/cart/clear", b.clearCart)
		r.Post("/orders", b.createOrder)
	})
	return r
}

type tokenKey struct{}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		ok := b.tokens[token]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenKey{}, token)))
	})
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	if b.Fail.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog unavailable"})
		return
	}
	search := strings.ToLower(r.URL.Query().Get("search"))
	category := r.URL.Query().Get("category")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []api.Product{}
	for _, id := range b.order {
		p := b.products[id]
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if category != "" && p.CategorySlug() != category {
			continue
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (b *Backend) featuredProducts(w http.ResponseWriter, _ *http.Request) {
	if b.Fail.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog unavailable"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []api.Product{}
	for _, id := range b.featured {
		out = append(out, b.products[id])
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (b *Backend) categories(w http.ResponseWriter, _ *http.Request) {
	if b.Fail.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog unavailable"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, id := range b.order {
		c := b.products[id].Category
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (b *Backend) product(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	b.mu.Lock()
	p, ok := b.products[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if pw, ok := b.users[req.Email]; !ok || pw != req.Password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credentials"})
		return
	}
	token := "token-" + req.Email
	b.tokens[token] = true
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": api.User{ID: 1, Email: req.Email}})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[req.Email]; ok {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
		return
	}
	b.users[req.Email] = req.Password
	token := "token-" + req.Email
	b.tokens[token] = true
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": api.User{ID: int64(len(b.users)), Email: req.Email, Name: req.Name}})
}

func (b *Backend) getCart(w http.ResponseWriter, r *http.Request) {
	if b.FailCart.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cart unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": b.CartOf(tokenOf(r))})
}

func (b *Backend) addToCart(w http.ResponseWriter, r *http.Request) {
	if b.FailCart.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cart unavailable"})
		return
	}
	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	token := tokenOf(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[req.ProductID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	items := b.carts[token]
	for i := range items {
		if items[i].ProductID == req.ProductID {
			items[i].Quantity += req.Quantity
			writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
			return
		}
	}
	b.carts[token] = append(items, api.CartItem{ProductID: p.ID, Quantity: req.Quantity, Product: p})
	writeJSON(w, http.StatusCreated, map[string]string{"message": "added"})
}

func (b *Backend) updateCart(w http.ResponseWriter, r *http.Request) {
	if b.FailCart.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cart unavailable"})
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}
	token := tokenOf(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, it := range b.carts[token] {
		if it.ProductID == id {
			b.carts[token][i].Quantity = req.Quantity
			writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not in cart"})
}

func (b *Backend) removeFromCart(w http.ResponseWriter, r *http.Request) {
	if b.FailCart.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cart unavailable"})
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	token := tokenOf(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.carts[token]
	for i, it := range items {
		if it.ProductID == id {
			b.carts[token] = append(items[:i:i], items[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not in cart"})
}

func (b *Backend) clearCart(w http.ResponseWriter, r *http.Request) {
	if b.FailCart.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cart unavailable"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.carts, tokenOf(r))
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) createOrder(w http.ResponseWriter, r *http.Request) {
	token := tokenOf(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.carts[token]
	if len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart is empty"})
		return
	}
	var total float64
	for _, it := range items {
		total += float64(it.Quantity) * it.Product.Price
	}
	delete(b.carts, token)
	writeJSON(w, http.StatusCreated, map[string]any{"order": api.Order{ID: 1, Items: items, Total: total, Status: "pending"}})
}

func tokenOf(r *http.Request) string {
	token, _ := r.Context().Value(tokenKey{}).(string)
	return token
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
