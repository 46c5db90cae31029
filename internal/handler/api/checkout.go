package api

import (
	"net/http"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/handler"
)

// CheckoutHandler serves /checkout.
type CheckoutHandler struct {
	checkout domain.CheckoutService
	validate *Validator
}

// NewCheckoutHandler creates a CheckoutHandler.
func NewCheckoutHandler(checkout domain.CheckoutService, validate *Validator) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, validate: validate}
}

type createSessionRequest struct {
	User string `json:"user" validate:"omitempty,email"`
}

type settleRequest struct {
	User       string `json:"user" validate:"omitempty,email"`
	SessionRef string `json:"sessionRef" validate:"required,max=255"`
}

// CreateSession handles POST /checkout/session. Prices come from the
// catalog, never from the request. An empty body is accepted.
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	const op = "checkout.initiate"

	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, op, &req); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		if err := h.validate.Struct(op, &req); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}
	user, err := requestUser(r, op, req.User)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	session, err := h.checkout.InitiateCheckout(r.Context(), user)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, session)
}

// Settle handles POST /checkout/settle. Success is either "confirmed" or
// "already-settled"; both are 200.
func (h *CheckoutHandler) Settle(w http.ResponseWriter, r *http.Request) {
	const op = "checkout.settle"

	var req settleRequest
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

	outcome, err := h.checkout.SettleOrder(r.Context(), user, req.SessionRef)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, statusResponse{Status: string(outcome)})
}

// GetSettlement handles GET /checkout/settlements/{sessionRef}.
func (h *CheckoutHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, "checkout.get_settlement", "")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	rec, err := h.checkout.GetSettlement(r.Context(), user, r.PathValue("sessionRef"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, rec)
}
