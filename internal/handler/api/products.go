package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/handler"
)

// ProductHandler serves the read-only catalog.
type ProductHandler struct {
	catalog domain.CatalogService
}

// NewProductHandler creates a ProductHandler.
func NewProductHandler(catalog domain.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

type productList struct {
	Products []domain.Product `json:"products"`
}

// Get handles GET /products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "catalog.get_product", "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, p)
}

// List handles GET /products?category=&limit=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "catalog.list_by_category"

	category := domain.Category(r.URL.Query().Get("category"))
	if category == "" {
		handler.ErrorResponse(w, r, domain.NewValidationError(op, "category", "category is required"))
		return
	}
	limit, err := queryLimit(r, op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.list(w, r, func(ctx context.Context) ([]domain.Product, error) {
		return h.catalog.ListByCategory(ctx, category, limit)
	})
}

// TopSelling handles GET /products/top-selling?limit=.
func (h *ProductHandler) TopSelling(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, "catalog.top_selling")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.list(w, r, func(ctx context.Context) ([]domain.Product, error) {
		return h.catalog.TopSelling(ctx, limit)
	})
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]domain.Product, error)) {
	products, err := fetch(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	handler.JSON(w, http.StatusOK, productList{Products: products})
}

// queryLimit parses ?limit=. Absent means the service default.
func queryLimit(r *http.Request, op string) (int32, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 1 {
		return 0, domain.NewValidationError(op, "limit", "limit must be a positive integer")
	}
	return int32(n), nil
}
