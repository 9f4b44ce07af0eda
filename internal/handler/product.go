package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/ovenlight/bakeshop-api/internal/domain/product"
)

type imageResponse struct {
	Thumbnail string `json:"thumbnail"`
	Desktop   string `json:"desktop"`
}

type productResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Price    float64       `json:"price"`
	Category string        `json:"category"`
	Image    imageResponse `json:"image"`
}

type categoryResponse struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

func (h *Handler) toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.InexactFloat64(),
		Category: p.Category.Name,
		Image: imageResponse{
			Thumbnail: h.imageURL(p.Image.Thumbnail),
			Desktop:   h.imageURL(p.Image.Desktop),
		},
	}
}

// imageURL prefixes relative image paths with the configured base URL.
// Absolute URLs pass through unchanged.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.cfg.ImageBaseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// ListProducts returns the whole catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	h.respondProducts(w, r, products)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, h.toProductResponse(p))
}

// ListCategories returns storefront categories in display order.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.ListCategories(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	out := make([]categoryResponse, len(categories))
	for i, c := range categories {
		out[i] = categoryResponse{Slug: c.Slug, Name: c.Name, Position: c.Position}
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"categories": out})
}

// ListCategoryProducts returns the products of one category.
func (h *Handler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListByCategory(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	h.respondProducts(w, r, products)
}

func (h *Handler) respondProducts(w http.ResponseWriter, r *http.Request, products []product.Product) {
	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = h.toProductResponse(&products[i])
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"products": out})
}
