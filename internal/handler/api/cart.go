package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/handler"
)

// CartHandler serves /cart.
type CartHandler struct {
	cart     domain.CartService
	validate *Validator
}

// NewCartHandler creates a CartHandler.
func NewCartHandler(cart domain.CartService, validate *Validator) *CartHandler {
	return &CartHandler{cart: cart, validate: validate}
}

type addToCartRequest struct {
	User      string `json:"user" validate:"omitempty,email"`
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  *int32 `json:"quantity" validate:"required,min=1,max=999"`
}

type updateQuantityRequest struct {
	User     string `json:"user" validate:"omitempty,email"`
	Quantity *int32 `json:"quantity" validate:"required,min=1,max=999"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// Add handles POST /cart. A new line answers 201, a replaced quantity 200.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	const op = "cart.add"

	var req addToCartRequest
	if err := decodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.validate.Struct(op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	user, err := requestUser(r, op, req.User)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	line, err := h.cart.AddOrIncrement(r.Context(), user, uuid.MustParse(req.ProductID), *req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	status := http.StatusOK
	if line.CreatedAt.Equal(line.UpdatedAt) {
		status = http.StatusCreated
	}
	handler.JSON(w, status, line)
}

// Get handles GET /cart?user=.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, "cart.get", r.URL.Query().Get("user"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	snap, err := h.cart.GetCart(r.Context(), user)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, snap)
}

// UpdateQuantity handles PATCH /cart/{lineId}.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	const op = "cart.update"

	lineID, err := pathUUID(r, op, "lineId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req updateQuantityRequest
	if err := decodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.validate.Struct(op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	user, err := requestUser(r, op, req.User)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	line, err := h.cart.UpdateQuantity(r.Context(), user, lineID, *req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, line)
}

// RemoveLine handles DELETE /cart/{lineId}.
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	const op = "cart.remove"

	lineID, err := pathUUID(r, op, "lineId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	user, err := requestUser(r, op, r.URL.Query().Get("user"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.cart.RemoveLine(r.Context(), user, lineID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, statusResponse{Status: "removed"})
}

// Clear handles DELETE /cart?user=. Clearing an empty cart succeeds.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, "cart.clear", r.URL.Query().Get("user"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.cart.ClearCart(r.Context(), user); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, statusResponse{Status: "cleared"})
}
