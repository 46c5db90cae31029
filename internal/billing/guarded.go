package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/dukerupert/storefront/internal/domain"
)

// GuardConfig bounds gateway calls.
type GuardConfig struct {
	// Timeout caps each call. Default: 10s.
	Timeout time.Duration

	// ConsecutiveFailures opens the breaker. Default: 5.
	ConsecutiveFailures uint32

	// OpenTimeout is how long the breaker stays open before probing. Default: 30s.
	OpenTimeout time.Duration

	// HalfOpenRequests is how many probes pass while half-open. Default: 1.
	HalfOpenRequests uint32
}

func (c GuardConfig) withDefaults() GuardConfig {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
	return c
}

// CallObserver is told the outcome of every guarded call:
// "ok", "rejected" (client-side error), or "unavailable".
type CallObserver func(op, outcome string, elapsed time.Duration)

// GuardedProvider wraps a Provider with a per-call timeout and a circuit
// breaker. Timeouts, transient gateway errors, and an open breaker all
// surface as domain.ErrGatewayUnavailable.
type GuardedProvider struct {
	next     Provider
	timeout  time.Duration
	cb       *gobreaker.CircuitBreaker[*CheckoutSession]
	logger   *slog.Logger
	observer CallObserver
}

var _ Provider = (*GuardedProvider)(nil)

// NewGuardedProvider wraps next. observer may be nil.
func NewGuardedProvider(next Provider, cfg GuardConfig, logger *slog.Logger, observer CallObserver) *GuardedProvider {
	cfg = cfg.withDefaults()

	cb := gobreaker.NewCircuitBreaker[*CheckoutSession](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isGatewayFault(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &GuardedProvider{
		next:     next,
		timeout:  cfg.Timeout,
		cb:       cb,
		logger:   logger,
		observer: observer,
	}
}

// CreateCheckoutSession implements Provider.
func (g *GuardedProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	return g.call(ctx, "billing.create_session", "", func(ctx context.Context) (*CheckoutSession, error) {
		return g.next.CreateCheckoutSession(ctx, params)
	})
}

// GetCheckoutSession implements Provider.
func (g *GuardedProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	return g.call(ctx, "billing.get_session", sessionID, func(ctx context.Context) (*CheckoutSession, error) {
		return g.next.GetCheckoutSession(ctx, sessionID)
	})
}

// ConstructWebhookEvent implements Provider. It makes no network call.
func (g *GuardedProvider) ConstructWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	return g.next.ConstructWebhookEvent(payload, signature)
}

// State reports the breaker state, for health output.
func (g *GuardedProvider) State() string {
	return g.cb.State().String()
}

type callResult struct {
	session *CheckoutSession
	err     error
}

func (g *GuardedProvider) call(ctx context.Context, op, ref string, fn func(context.Context) (*CheckoutSession, error)) (*CheckoutSession, error) {
	start := time.Now()

	session, err := g.cb.Execute(func() (*CheckoutSession, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		done := make(chan callResult, 1)
		go func() {
			s, err := fn(callCtx)
			done <- callResult{session: s, err: err}
		}()

		select {
		case r := <-done:
			return r.session, r.err
		case <-callCtx.Done():
			return nil, callCtx.Err()
		}
	})

	err = g.mapError(op, ref, err)
	g.observe(op, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (g *GuardedProvider) observe(op string, err error, elapsed time.Duration) {
	if g.observer == nil {
		return
	}
	outcome := "ok"
	switch {
	case domain.IsCode(err, domain.EUNAVAILABLE):
		outcome = "unavailable"
	case err != nil:
		outcome = "rejected"
	}
	g.observer(op, outcome, elapsed)
}

func (g *GuardedProvider) mapError(op, ref string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.logger.Warn("payment gateway call short-circuited", "op", op, "error", err)
		return domain.Unavailable(err, op)
	case errors.Is(err, ErrSessionNotFound):
		return domain.NotFound(op, "checkout session", ref)
	case errors.Is(err, ErrNoLineItems):
		return domain.WrapError(err, domain.EINVALID, op, "nothing to charge")
	}

	if isGatewayFault(err) {
		g.logger.Error("payment gateway call failed", "op", op, "error", err)
		return domain.Unavailable(err, op)
	}
	return domain.Internal(err, op, "payment gateway rejected the request")
}

// isGatewayFault reports whether err is the gateway's fault (timeouts,
// transport failures, 5xx, rate limits) rather than a bad request.
func isGatewayFault(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNoLineItems) || errors.Is(err, ErrInvalidWebhookSignature) {
		return false
	}
	var se *StripeError
	if errors.As(err, &se) {
		return se.IsTemporary()
	}
	return true
}
