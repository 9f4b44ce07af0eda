// Package handler exposes the storefront and back-office HTTP API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ovenlight/bakeshop-api/internal/domain/audit"
	"github.com/ovenlight/bakeshop-api/internal/domain/order"
	"github.com/ovenlight/bakeshop-api/internal/domain/product"
	"github.com/ovenlight/bakeshop-api/internal/newsletter"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the JSON API, delegating business logic to the domain
// services and repositories.
type Handler struct {
	cfg        Config
	products   product.Repository
	orders     *order.Service
	coupons    couponValidator
	auditTrail audit.Store
	news       *newsletter.Service
	security   *Security
}

// New constructs a Handler with the required dependencies.
func New(
	cfg Config,
	products product.Repository,
	orders *order.Service,
	coupons couponValidator,
	auditTrail audit.Store,
	news *newsletter.Service,
	security *Security,
) *Handler {
	return &Handler{
		cfg:        cfg,
		products:   products,
		orders:     orders,
		coupons:    coupons,
		auditTrail: auditTrail,
		news:       news,
		security:   security,
	}
}

// Routes builds the API router. Storefront endpoints are public; back-office
// endpoints under /admin require an API key.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{slug}/products", h.ListCategoryProducts)

		r.Post("/orders", h.Checkout)
		r.Post("/coupon/validate", h.ValidateCoupon)
		r.Post("/payments/callback", h.PaymentCallback)
		r.Post("/newsletter", h.NewsletterSignup)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.security.RequireAPIKey)
			r.Get("/orders", h.AdminListOrders)
			r.Get("/orders/{reference}", h.AdminGetOrder)
			r.Get("/orders/{reference}/audit", h.AdminOrderAudit)
			r.Patch("/orders/{reference}", h.AdminUpdateOrderDetails)
			r.Patch("/orders/{reference}/status", h.AdminUpdateOrderStatus)
		})
	})

	return r
}
