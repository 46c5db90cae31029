// Package webhook receives payment gateway callbacks.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/storefront/internal/billing"
	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/handler"
	"github.com/dukerupert/storefront/internal/middleware"
	"github.com/dukerupert/storefront/internal/telemetry"
)

// MaxPayloadSize bounds a webhook body. Stripe events are far smaller.
const MaxPayloadSize = 256 * middleware.KB

// StripeHandler settles orders from Stripe checkout events. It returns 5xx
// only for failures a redelivery could fix, so Stripe retries those and
// stops retrying everything else.
type StripeHandler struct {
	provider billing.Provider
	checkout domain.CheckoutService
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewStripeHandler creates a StripeHandler.
func NewStripeHandler(provider billing.Provider, checkout domain.CheckoutService, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *StripeHandler {
	return &StripeHandler{
		provider: provider,
		checkout: checkout,
		metrics:  metrics,
		logger:   logger,
	}
}

type ackResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook handles POST /webhooks/stripe.
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:3000/webhooks/stripe
//	stripe trigger checkout.session.completed
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context(), h.logger)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadSize))
	if err != nil {
		h.metrics.WebhookFailure("read")
		if middleware.IsBodyTooLarge(err) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.ETOOLARGE, "webhook.stripe", "Payload too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		h.metrics.WebhookFailure("missing_signature")
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Missing signature"))
		return
	}

	event, err := h.provider.ConstructWebhookEvent(payload, signature)
	if err != nil {
		h.metrics.WebhookFailure("signature")
		logger.Warn("webhook signature verification failed", "error", err)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Invalid signature"))
		return
	}

	logger = logger.With("event_id", event.ID, "event_type", event.Type)
	h.metrics.Webhook(event.Type)

	switch event.Type {
	case billing.EventCheckoutCompleted, billing.EventCheckoutAsyncPaymentOK:
		err = h.settle(r.Context(), logger, event.Session)
	case billing.EventCheckoutExpired, billing.EventCheckoutAsyncPaymentFailed:
		err = h.markFailed(r.Context(), logger, event.Session)
	default:
		logger.Debug("ignoring webhook event")
	}

	if err != nil {
		h.metrics.WebhookFailure("process")
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, ackResponse{Received: true})
}

// settle applies a paid session. Errors are returned only when a retry
// could succeed.
func (h *StripeHandler) settle(ctx context.Context, logger *slog.Logger, session *billing.CheckoutSession) error {
	if session == nil || session.ID == "" {
		logger.Warn("checkout event without a session")
		return nil
	}
	logger = logger.With("session_ref", session.ID)

	user := sessionOwner(session)
	if user.IsZero() {
		logger.Warn("checkout session has no owner; cannot settle")
		h.metrics.WebhookFailure("no_owner")
		return nil
	}

	outcome, err := h.checkout.SettleOrder(ctx, user, session.ID)
	switch {
	case err == nil:
		logger.Info("order settled from webhook", "outcome", outcome)
		return nil
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		// Completed with a delayed payment method; async_payment_succeeded follows.
		logger.Info("payment not yet confirmed")
		return nil
	case retryable(err):
		return err
	default:
		logger.Warn("webhook settlement rejected", "error", err)
		h.metrics.WebhookFailure("rejected")
		return nil
	}
}

func (h *StripeHandler) markFailed(ctx context.Context, logger *slog.Logger, session *billing.CheckoutSession) error {
	if session == nil || session.ID == "" {
		logger.Warn("checkout event without a session")
		return nil
	}

	err := h.checkout.MarkFailed(ctx, session.ID)
	switch {
	case err == nil:
		logger.Info("checkout session marked failed", "session_ref", session.ID)
		return nil
	case retryable(err):
		return err
	default:
		logger.Warn("could not mark session failed", "session_ref", session.ID, "error", err)
		return nil
	}
}

// sessionOwner recovers the shopper a session was created for.
func sessionOwner(s *billing.CheckoutSession) domain.Identity {
	for _, candidate := range []string{s.Metadata["user"], s.ClientReferenceID, s.CustomerEmail} {
		if email := strings.ToLower(strings.TrimSpace(candidate)); email != "" {
			return domain.Identity{Email: email}
		}
	}
	return domain.Identity{}
}

func retryable(err error) bool {
	switch domain.ErrorCode(err) {
	case domain.EINTERNAL, domain.EUNAVAILABLE:
		return true
	}
	return false
}
