// Package rest exposes the storefront state to a UI over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/api"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/notify"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Cart interface {
	Snapshot() cart.Snapshot
	Refresh(ctx context.Context) error
	AddItem(ctx context.Context, productID int64, quantity int) error
	UpdateItem(ctx context.Context, productID int64, quantity int) error
	RemoveItem(ctx context.Context, productID int64) error
	Clear(ctx context.Context) error
}

type Catalog interface {
	Apply(ctx context.Context, f catalog.Filter) catalog.State
	Featured(ctx context.Context) ([]api.Product, bool)
}

type Session interface {
	Authenticated() bool
	Login(ctx context.Context, token string) error
	Logout(ctx context.Context) error
}

// Backend is the part of the backend client used directly by handlers.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.LoginResult, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*api.User, error)
	Product(ctx context.Context, id int64) (*api.Product, error)
	Categories(ctx context.Context) ([]string, error)
	CreateOrder(ctx context.Context, req api.OrderRequest) (*api.Order, error)
	Orders(ctx context.Context) ([]api.Order, error)
	Order(ctx context.Context, id int64) (*api.Order, error)
	Ping(ctx context.Context) error
}

type Notices interface {
	Drain() []notify.Notice
}

type Handler struct {
	cart     Cart
	catalog  Catalog
	session  Session
	backend  Backend
	notices  Notices
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(c Cart, cat Catalog, sess Session, backend Backend, notices Notices, logger *slog.Logger) *Handler {
	return &Handler{
		cart:     c,
		catalog:  cat,
		session:  sess,
		backend:  backend,
		notices:  notices,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the storefront API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/featured", h.FeaturedProducts)
			r.Get("/options", h.ListingOptions)
			r.Get("/categories", h.BackendCategories)
			r.Get("/{productID}", h.GetProduct)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/refresh", h.RefreshCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{productID}", h.UpdateItem)
			r.Delete("/items/{productID}", h.RemoveItem)
		})
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/", h.Login)
			r.Delete("/", h.Logout)
			r.Post("/register", h.Register)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.Checkout)
			r.Get("/{orderID}", h.GetOrder)
		})
		r.Get("/notices", h.DrainNotices)
	})
	r.Get("/livez", h.Livez)
	r.Get("/readyz", h.Readyz)
}

// ListProducts applies the filter from the query string and returns the resulting listing.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := catalog.ParseFilter(r.URL.Query())
	h.logger.DebugContext(r.Context(), "Received request to list products", "filter", f)
	state := h.catalog.Apply(r.Context(), f)
	web.RespondJSON(w, h.logger, http.StatusOK, state)
}

func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, degraded := h.catalog.Featured(r.Context())
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]any{
		"products": products,
		"degraded": degraded,
	})
}

func (h *Handler) ListingOptions(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]any{
		"categories": catalog.Categories(),
		"sort":       catalog.SortOptions(),
	})
}

// BackendCategories lists the category labels the backend knows about, in its order.
func (h *Handler) BackendCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.backend.Categories(r.Context())
	if err != nil {
		h.respondFailure(w, r, "Failed to fetch categories", err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseInt64Param(w, r, h.logger, "productID")
	if !ok {
		return
	}
	product, err := h.backend.Product(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, "Failed to fetch product", err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) GetCart(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, h.cart.Snapshot())
}

func (h *Handler) RefreshCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Refresh(r.Context()); err != nil {
		h.respondFailure(w, r, "Failed to load cart", err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, h.cart.Snapshot())
}

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to add cart item", "product_id", req.ProductID, "quantity", req.Quantity)
	h.respondCart(w, r, "Failed to add item to cart", h.cart.AddItem(r.Context(), req.ProductID, req.Quantity))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := web.ParseInt64Param(w, r, h.logger, "productID")
	if !ok {
		return
	}
	var req updateItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to update cart item", "product_id", productID, "quantity", *req.Quantity)
	h.respondCart(w, r, "Failed to update cart item", h.cart.UpdateItem(r.Context(), productID, *req.Quantity))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := web.ParseInt64Param(w, r, h.logger, "productID")
	if !ok {
		return
	}
	h.respondCart(w, r, "Failed to remove item from cart", h.cart.RemoveItem(r.Context(), productID))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, "Failed to clear cart", h.cart.Clear(r.Context()))
}

type sessionResponse struct {
	Authenticated bool      `json:"authenticated"`
	User          *api.User `json:"user,omitempty"`
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	if !h.session.Authenticated() {
		web.RespondJSON(w, h.logger, http.StatusOK, sessionResponse{})
		return
	}
	user, err := h.backend.Profile(r.Context())
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			web.RespondJSON(w, h.logger, http.StatusOK, sessionResponse{})
			return
		}
		h.logger.WarnContext(r.Context(), "Failed to load profile", "error", err)
	}
	web.RespondJSON(w, h.logger, http.StatusOK, sessionResponse{Authenticated: h.session.Authenticated(), User: user})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.backend.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, api.ErrUnauthorized) {
		h.logger.WarnContext(r.Context(), "Login rejected", "email", req.Email)
		web.RespondError(w, h.logger, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.respondFailure(w, r, "Login failed", err)
		return
	}
	if err := h.session.Login(r.Context(), res.Token); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to start session", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to start session")
		return
	}
	if err := h.cart.Refresh(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "Cart refresh after login failed", "error", err)
	}
	h.logger.InfoContext(r.Context(), "User logged in", "email", req.Email)
	web.RespondJSON(w, h.logger, http.StatusOK, sessionResponse{Authenticated: true, User: res.User})
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Register creates an account. When the backend hands out a token the session starts right away.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.backend.Register(r.Context(), api.RegisterRequest{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		h.respondFailure(w, r, "Registration failed", err)
		return
	}
	h.logger.InfoContext(r.Context(), "User registered", "email", req.Email)
	if res.Token == "" {
		web.RespondJSON(w, h.logger, http.StatusCreated, sessionResponse{User: res.User})
		return
	}
	if err := h.session.Login(r.Context(), res.Token); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to start session", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to start session")
		return
	}
	if err := h.cart.Refresh(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "Cart refresh after registration failed", "error", err)
	}
	web.RespondJSON(w, h.logger, http.StatusCreated, sessionResponse{Authenticated: true, User: res.User})
}

// Logout always ends the local session, even when the backend call fails.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.session.Authenticated() {
		if err := h.backend.Logout(r.Context()); err != nil && !errors.Is(err, api.ErrUnauthorized) {
			h.logger.WarnContext(r.Context(), "Backend logout failed", "error", err)
		}
	}
	if err := h.session.Logout(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to end session", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to end session")
		return
	}
	_ = h.cart.Refresh(r.Context())
	web.RespondJSON(w, h.logger, http.StatusOK, sessionResponse{})
}

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	PaymentMethod   string `json:"payment_method" validate:"required"`
}

// Checkout places an order for the current cart and refreshes the cart afterwards.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.backend.CreateOrder(r.Context(), api.OrderRequest{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		h.respondFailure(w, r, "Failed to place order", err)
		return
	}
	if err := h.cart.Refresh(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "Cart refresh after checkout failed", "error", err)
	}
	h.logger.InfoContext(r.Context(), "Order placed", "order_id", order.ID)
	web.RespondJSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.backend.Orders(r.Context())
	if err != nil {
		h.respondFailure(w, r, "Failed to fetch orders", err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseInt64Param(w, r, h.logger, "orderID")
	if !ok {
		return
	}
	order, err := h.backend.Order(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, "Failed to fetch order", err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, order)
}

// DrainNotices returns the notices raised since the last call, oldest first.
func (h *Handler) DrainNotices(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, h.notices.Drain())
}

func (h *Handler) Livez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Readyz reports whether the backend answers.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
		web.RespondError(w, h.logger, http.StatusServiceUnavailable, "backend unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// respondCart writes the cart snapshot after a mutation. A failed refresh after a
// successful mutation still answers 200; the stale snapshot is the best available view.
func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, message string, err error) {
	if err != nil && !errors.Is(err, cart.ErrRefreshFailed) {
		h.respondFailure(w, r, message, err)
		return
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "Cart changed but could not be reloaded", "error", err)
	}
	web.RespondJSON(w, h.logger, http.StatusOK, h.cart.Snapshot())
}

// decode reads a JSON body into dst and validates it, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		h.logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
