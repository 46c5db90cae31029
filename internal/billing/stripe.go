package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider using Stripe Checkout.
type StripeProvider struct {
	config   StripeConfig
	sessions checkoutsession.Client
	logger   *slog.Logger
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider creates a Stripe provider with its own backend, so the
// HTTP timeout and retry budget do not depend on package-level SDK state.
func NewStripeProvider(config StripeConfig, logger *slog.Logger) (*StripeProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: config.Timeout(), Transport: config.Transport},
		MaxNetworkRetries: stripe.Int64(config.retries()),
	})

	return &StripeProvider{
		config:   config,
		sessions: checkoutsession.Client{B: backend, Key: config.APIKey},
		logger:   logger,
	}, nil
}

// CreateCheckoutSession creates a Stripe Checkout session in payment mode.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	if len(params.LineItems) == 0 {
		return nil, ErrNoLineItems
	}

	sp := buildCheckoutSessionParams(params)
	sp.Context = ctx

	start := time.Now()
	session, err := s.sessions.New(sp)
	if err != nil {
		return nil, s.wrapError("create checkout session", err)
	}

	s.logger.Info("stripe: checkout session created",
		"session_id", session.ID,
		"amount_total", session.AmountTotal,
		"duration", time.Since(start),
	)
	return sessionFromStripe(session), nil
}

// GetCheckoutSession retrieves a Stripe Checkout session.
func (s *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := s.sessions.Get(sessionID, params)
	if err != nil {
		return nil, s.wrapError("get checkout session", err)
	}
	return sessionFromStripe(session), nil
}

// ConstructWebhookEvent verifies the Stripe-Signature header and decodes
// checkout session events.
func (s *StripeProvider) ConstructWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncPaymentOK, EventCheckoutAsyncPaymentFailed, EventCheckoutExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("billing: decode checkout session event: %w", err)
		}
		out.Session = sessionFromStripe(&session)
	}
	return out, nil
}

func buildCheckoutSessionParams(params CreateCheckoutSessionParams) *stripe.CheckoutSessionParams {
	currency := params.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.LineItems))
	for _, li := range params.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{li.ImageURL})
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	sp := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  items,
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	if params.CustomerEmail != "" {
		sp.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	if params.ClientReferenceID != "" {
		sp.ClientReferenceID = stripe.String(params.ClientReferenceID)
	}
	for k, v := range params.Metadata {
		sp.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		sp.SetIdempotencyKey(params.IdempotencyKey)
	}
	return sp
}

func sessionFromStripe(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:                s.ID,
		URL:               s.URL,
		Status:            string(s.Status),
		PaymentStatus:     string(s.PaymentStatus),
		CustomerEmail:     s.CustomerEmail,
		ClientReferenceID: s.ClientReferenceID,
		AmountTotal:       s.AmountTotal,
		Currency:          string(s.Currency),
		Metadata:          s.Metadata,
	}
	if out.CustomerEmail == "" && s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if s.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	}
	return out
}

// wrapError converts Stripe SDK errors to StripeError.
func (s *StripeProvider) wrapError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		wrapped := &StripeError{
			Message:        stripeErr.Msg,
			Type:           string(stripeErr.Type),
			Code:           string(stripeErr.Code),
			HTTPStatusCode: stripeErr.HTTPStatusCode,
			RequestID:      stripeErr.RequestID,
			OriginalError:  err,
		}
		s.logger.Warn("stripe: "+op+" failed",
			"type", wrapped.Type,
			"code", wrapped.Code,
			"status", wrapped.HTTPStatusCode,
			"request_id", wrapped.RequestID,
		)
		if wrapped.IsNotFound() {
			return fmt.Errorf("%w: %v", ErrSessionNotFound, wrapped)
		}
		return wrapped
	}
	return fmt.Errorf("stripe: %s: %w", op, err)
}
