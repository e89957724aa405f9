// Package handler is the HTTP transport of the cart service.
package handler

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/auth"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/order"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in responses. When
	// empty, image paths are returned as stored.
	ImageBaseURL string
	// SessionCookie names the guest session cookie.
	SessionCookie string
	// SessionMaxAge is the guest cookie lifetime.
	SessionMaxAge time.Duration
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

// Handler serves the catalog, cart and order endpoints.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	orders   *order.Service
	auth     *auth.Authenticator
	validate *validator.Validate
	cfg      Config
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	carts *cart.Service,
	orders *order.Service,
	authn *auth.Authenticator,
) *Handler {
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = DefaultSessionCookie
	}
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		auth:     authn,
		validate: newValidator(),
		cfg:      cfg,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("PATCH /api/cart/items/{productId}", h.UpdateItem)
	mux.HandleFunc("PUT /api/cart/items/{productId}", h.SetItem)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", h.RemoveItem)
	mux.HandleFunc("PUT /api/cart/discount", h.SetDiscount)
	mux.HandleFunc("DELETE /api/cart/discount", h.ClearDiscount)
	mux.HandleFunc("POST /api/cart/merge", h.MergeCart)

	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (h *Handler) imageURL(path string) string {
	if h.cfg.ImageBaseURL == "" || path == "" ||
		strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
