package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/storefront/internal/billing"
	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/jobs"
	"github.com/dukerupert/storefront/internal/postgres"
	"github.com/dukerupert/storefront/internal/repository"
	"github.com/dukerupert/storefront/internal/telemetry"
)

// CheckoutConfig holds the URLs and currency used for hosted sessions.
type CheckoutConfig struct {
	// BaseURL is the public origin of the storefront, e.g. https://shop.example.
	BaseURL string

	// SuccessPath receives ?session_id=... after payment. Default: /checkout/success
	SuccessPath string

	// CancelPath is where an abandoned payment returns. Default: /cart
	CancelPath string

	// Currency is the ISO 4217 code charged. Default: usd
	Currency string
}

func (c CheckoutConfig) withDefaults() CheckoutConfig {
	if c.SuccessPath == "" {
		c.SuccessPath = "/checkout/success"
	}
	if c.CancelPath == "" {
		c.CancelPath = "/cart"
	}
	if c.Currency == "" {
		c.Currency = "usd"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.Currency = strings.ToLower(c.Currency)
	return c
}

// SuccessURL is the gateway return URL. The gateway fills in the session id.
func (c CheckoutConfig) SuccessURL() string {
	return c.BaseURL + c.SuccessPath + "?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL is where the gateway sends an abandoned checkout.
func (c CheckoutConfig) CancelURL() string {
	return c.BaseURL + c.CancelPath
}

// CheckoutService implements domain.CheckoutService.
//
// Checkout never trusts client prices: InitiateCheckout re-reads the cart
// joined with the catalog and charges those prices. Settlement is keyed by
// the gateway session id. It runs at most once per session, guarded in
// process by singleflight and across processes by an advisory lock plus the
// unique session_ref on order_settlements.
type CheckoutService struct {
	store   postgres.Store
	gateway billing.Provider
	config  CheckoutConfig
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger

	settles singleflight.Group
}

var _ domain.CheckoutService = (*CheckoutService)(nil)

// NewCheckoutService creates a CheckoutService. gateway should be a
// *billing.GuardedProvider in production so calls are time-bounded.
func NewCheckoutService(store postgres.Store, gateway billing.Provider, config CheckoutConfig, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		store:   store,
		gateway: gateway,
		config:  config.withDefaults(),
		metrics: metrics,
		logger:  logger,
	}
}

// InitiateCheckout creates a hosted session for the user's current cart and
// records a pending settlement holding the charged lines.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, user domain.Identity) (*domain.CheckoutSession, error) {
	const op = "checkout.initiate"

	if user.IsZero() {
		return nil, withOp(domain.ErrUnauthenticated, op)
	}

	rows, err := s.store.ListCartItems(ctx, user.Email)
	if err != nil {
		s.metrics.Checkout("error")
		return nil, domain.Internal(err, op, "failed to load cart")
	}

	items, dropped := priceCartRows(rows)
	var warnings []string
	for _, d := range dropped {
		s.logger.Warn("dropping cart line for missing product from checkout", "user", user.Email, "product_id", d.ProductID)
		s.metrics.LineDropped("checkout")
		warnings = append(warnings, d.Warning+" and was left out of checkout")
	}

	if len(items) == 0 {
		s.metrics.Checkout("empty_cart")
		return nil, withOp(domain.ErrEmptyCart, op)
	}

	snapshot := domain.NewCartSnapshot(items, nil)
	lines := make([]domain.SettlementLine, 0, len(snapshot.Items))
	lineItems := make([]billing.LineItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		lines = append(lines, domain.SettlementLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
		lineItems = append(lineItems, billing.LineItem{
			Name:       item.Name,
			UnitAmount: billing.ToMinorUnits(item.UnitPrice),
			Quantity:   int64(item.Quantity),
			ImageURL:   item.Picture,
		})
	}

	session, err := s.createSession(ctx, user, snapshot, billing.CreateCheckoutSessionParams{
		LineItems:         lineItems,
		Currency:          s.config.Currency,
		CustomerEmail:     user.Email,
		ClientReferenceID: user.Email,
		SuccessURL:        s.config.SuccessURL(),
		CancelURL:         s.config.CancelURL(),
		Metadata:          map[string]string{"user": user.Email},
	})
	if err != nil {
		s.metrics.Checkout("error")
		return nil, err
	}

	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode settlement lines")
	}

	_, err = s.store.CreateSettlement(ctx, repository.CreateSettlementParams{
		UserEmail:  user.Email,
		SessionRef: session.ID,
		Status:     string(domain.SettlementPending),
		Lines:      linesJSON,
		Subtotal:   snapshot.Subtotal,
		Currency:   s.config.Currency,
	})
	// A conflict means an idempotent retry got the same session back.
	if err != nil && !postgres.IsNoRows(err) {
		s.metrics.Checkout("error")
		return nil, domain.Internal(err, op, "failed to record checkout")
	}

	s.metrics.Checkout("created")
	s.logger.Info("checkout session created",
		"user", user.Email,
		"session_ref", session.ID,
		"lines", len(lines),
		"subtotal", snapshot.Subtotal.StringFixed(2),
		"status", domain.CheckoutSessionCreated,
	)

	return &domain.CheckoutSession{
		SessionRef:  session.ID,
		RedirectURL: session.URL,
		Warnings:    warnings,
	}, nil
}

// createSession asks the gateway for a session keyed on the cart state.
// A key whose session has failed is never sent again: the user's latest
// failed session is part of the key, and an expired session the gateway
// still returns is marked failed and replaced once.
func (s *CheckoutService) createSession(ctx context.Context, user domain.Identity, snap *domain.CartSnapshot, params billing.CreateCheckoutSessionParams) (*billing.CheckoutSession, error) {
	const op = "checkout.initiate"

	lastFailed, err := s.store.GetLatestFailedSettlementRef(ctx, user.Email)
	if err != nil && !postgres.IsNoRows(err) {
		return nil, domain.Internal(err, op, "failed to load previous checkout")
	}

	params.IdempotencyKey = checkoutIdempotencyKey(user, snap, lastFailed)
	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, gatewayError(err, op)
	}
	if !session.IsFailed() {
		return session, nil
	}

	s.logger.Info("gateway returned an expired session, starting a new one", "user", user.Email, "session_ref", session.ID)
	if err := s.markFailed(ctx, session.ID); err != nil {
		return nil, err
	}

	params.IdempotencyKey = checkoutIdempotencyKey(user, snap, session.ID)
	session, err = s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, gatewayError(err, op)
	}
	if session.IsFailed() {
		return nil, domain.Unavailable(errors.New("gateway returned an expired session"), op)
	}
	return session, nil
}

// checkoutIdempotencyKey is stable for one cart state after the given
// failed session. Line ids change after a cart is cleared, so a later
// purchase of the same items gets a new session.
func checkoutIdempotencyKey(user domain.Identity, snap *domain.CartSnapshot, lastFailed string) string {
	h := sha256.New()
	h.Write([]byte(user.Email))
	fmt.Fprintf(h, "|after:%s", lastFailed)
	for _, item := range snap.Items {
		fmt.Fprintf(h, "|%s:%d:%s", item.LineID, item.Quantity, item.UnitPrice.String())
	}
	return "checkout:" + hex.EncodeToString(h.Sum(nil))[:32]
}

// SettleOrder verifies payment with the gateway and then, in one
// transaction, records the sale of every current cart line, clears the cart,
// confirms the settlement, and enqueues the receipt and event jobs.
func (s *CheckoutService) SettleOrder(ctx context.Context, user domain.Identity, sessionRef string) (domain.SettleOutcome, error) {
	const op = "checkout.settle"

	if user.IsZero() {
		return "", withOp(domain.ErrUnauthenticated, op)
	}
	sessionRef = strings.TrimSpace(sessionRef)
	if sessionRef == "" {
		return "", withOp(ErrSessionRefRequired, op)
	}

	// Duplicate callbacks in this process share one run. The run is
	// detached from the caller so a dropped connection cannot abort it.
	key := settlementLockKey(user, sessionRef)
	v, err, _ := s.settles.Do(key, func() (any, error) {
		return s.settle(context.WithoutCancel(ctx), user, sessionRef)
	})
	if err != nil {
		s.recordSettleFailure(err)
		return "", err
	}

	outcome := v.(domain.SettleOutcome)
	if outcome == domain.SettleAlreadySettled {
		s.metrics.Settlement("already_settled")
	}
	return outcome, nil
}

func (s *CheckoutService) recordSettleFailure(err error) {
	switch {
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		s.metrics.Settlement("not_confirmed")
	case domain.IsCode(err, domain.EUNAVAILABLE):
		s.metrics.Settlement("gateway_unavailable")
	default:
		s.metrics.Settlement("error")
	}
}

func settlementLockKey(user domain.Identity, sessionRef string) string {
	return user.Email + ":" + sessionRef
}

func (s *CheckoutService) settle(ctx context.Context, user domain.Identity, sessionRef string) (domain.SettleOutcome, error) {
	const op = "checkout.settle"
	log := s.logger.With("user", user.Email, "session_ref", sessionRef)

	existing, err := s.store.GetSettlementBySessionRef(ctx, sessionRef)
	recorded := err == nil
	switch {
	case recorded:
		if existing.UserEmail != user.Email {
			return "", withOp(ErrNotSessionOwner, op)
		}
		switch status := domain.SettlementStatus(existing.Status); {
		case status == domain.SettlementConfirmed:
			log.Info("settlement already confirmed")
			return domain.SettleAlreadySettled, nil
		case status.CheckoutStatus().IsTerminal():
			log.Info("checkout already failed", "status", status.CheckoutStatus())
			return "", withOp(domain.ErrPaymentNotConfirmed, op)
		}
	case postgres.IsNoRows(err):
		// Session not started through InitiateCheckout here; the gateway's
		// client reference decides ownership below.
	default:
		return "", domain.Internal(err, op, "failed to load settlement")
	}

	// Never hold a transaction open across the gateway call.
	session, err := s.gateway.GetCheckoutSession(ctx, sessionRef)
	if err != nil {
		return "", gatewayError(err, op)
	}

	if !recorded {
		if !user.Matches(session.ClientReferenceID) && !user.Matches(session.CustomerEmail) {
			return "", withOp(ErrNotSessionOwner, op)
		}
	}

	if session.IsFailed() {
		if err := s.markFailed(ctx, sessionRef); err != nil {
			log.Error("failed to mark settlement failed", "error", err)
		}
		return "", withOp(domain.ErrPaymentNotConfirmed, op)
	}
	if !session.IsPaid() {
		log.Info("payment not confirmed by gateway", "session_status", session.Status, "payment_status", session.PaymentStatus)
		return "", withOp(domain.ErrPaymentNotConfirmed, op)
	}
	log.Info("payment confirmed by gateway", "status", domain.CheckoutPaymentConfirmed)

	var (
		outcome domain.SettleOutcome
		settled *domain.SettlementRecord
		sold    map[uuid.UUID]int32
		units   int
	)

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := q.AcquireSettlementLock(ctx, settlementLockKey(user, sessionRef)); err != nil {
			return domain.Internal(err, op, "failed to lock settlement")
		}

		row, err := s.lockOrCreateSettlement(ctx, q, user, sessionRef, session)
		if err != nil {
			return err
		}
		if row.UserEmail != user.Email {
			return withOp(ErrNotSessionOwner, op)
		}
		switch status := domain.SettlementStatus(row.Status); {
		case status == domain.SettlementConfirmed:
			outcome = domain.SettleAlreadySettled
			return nil
		case !status.CanTransitionTo(domain.CheckoutPaymentConfirmed):
			// Failed while the gateway was being asked.
			return withOp(domain.ErrPaymentNotConfirmed, op)
		}

		cartLines, err := q.ListCartLinesForUpdate(ctx, user.Email)
		if err != nil {
			return domain.Internal(err, op, "failed to load cart")
		}

		sale := make([]domain.SaleLine, 0, len(cartLines))
		sold = make(map[uuid.UUID]int32, len(cartLines))
		units = 0
		for _, line := range cartLines {
			if _, err := q.GetProduct(ctx, line.ProductID); err != nil {
				if postgres.IsNoRows(err) {
					log.Warn("skipping cart line for missing product at settlement", "product_id", line.ProductID)
					s.metrics.LineDropped("settlement")
					continue
				}
				return domain.Internal(err, op, "failed to load product")
			}
			sale = append(sale, domain.SaleLine{ProductID: line.ProductID, Quantity: line.Quantity})
			sold[line.ProductID] += line.Quantity
			units += int(line.Quantity)
		}

		if err := postgres.RecordSaleBatchTx(ctx, q, sale); err != nil {
			return err
		}
		if _, err := q.ClearCart(ctx, user.Email); err != nil {
			return domain.Internal(err, op, "failed to clear cart")
		}

		confirmed, err := q.ConfirmSettlement(ctx, row.ID)
		if err != nil {
			return domain.Internal(err, op, "failed to confirm settlement")
		}
		settled, err = postgres.SettlementFromRow(confirmed)
		if err != nil {
			return domain.Internal(err, op, "failed to decode settlement")
		}

		if err := jobs.EnqueueOrderSettled(ctx, q, jobs.NewOrderSettledPayload(settled)); err != nil {
			return domain.Internal(err, op, "failed to enqueue settlement jobs")
		}

		outcome = domain.SettleConfirmed
		return nil
	})
	if err != nil {
		log.Error("settlement rolled back", "error", err)
		return "", err
	}

	if outcome == domain.SettleConfirmed {
		if linesDiffer(settled.Lines, sold) {
			log.Warn("settled cart differs from lines charged at checkout",
				"charged_lines", len(settled.Lines), "settled_lines", len(sold))
		}
		s.metrics.Settlement("confirmed")
		s.metrics.Settled(settled.Subtotal.InexactFloat64(), units)
		log.Info("order settled", "settlement_id", settled.ID, "units", units, "status", domain.CheckoutSettled)
	}
	return outcome, nil
}

// lockOrCreateSettlement returns the settlement row locked for update,
// inserting one when the session was never recorded.
func (s *CheckoutService) lockOrCreateSettlement(ctx context.Context, q repository.Querier, user domain.Identity, sessionRef string, session *billing.CheckoutSession) (repository.OrderSettlement, error) {
	const op = "checkout.settle"

	row, err := q.GetSettlementBySessionRefForUpdate(ctx, sessionRef)
	if err == nil {
		return row, nil
	}
	if !postgres.IsNoRows(err) {
		return row, domain.Internal(err, op, "failed to lock settlement")
	}

	currency := strings.ToLower(session.Currency)
	if currency == "" {
		currency = s.config.Currency
	}
	row, err = q.CreateSettlement(ctx, repository.CreateSettlementParams{
		UserEmail:  user.Email,
		SessionRef: sessionRef,
		Status:     string(domain.SettlementPending),
		Lines:      []byte("[]"),
		Subtotal:   decimal.New(session.AmountTotal, -2),
		Currency:   currency,
	})
	if postgres.IsNoRows(err) {
		// Inserted concurrently under a different lock key.
		row, err = q.GetSettlementBySessionRefForUpdate(ctx, sessionRef)
	}
	if err != nil {
		return row, domain.Internal(err, op, "failed to record settlement")
	}
	return row, nil
}

// linesDiffer reports whether the quantities sold differ from the lines
// charged when the session was created. An unrecorded session has no
// charged lines and is not compared.
func linesDiffer(charged []domain.SettlementLine, sold map[uuid.UUID]int32) bool {
	if len(charged) == 0 {
		return false
	}
	want := make(map[uuid.UUID]int32, len(charged))
	for _, l := range charged {
		want[l.ProductID] += l.Quantity
	}
	if len(want) != len(sold) {
		return true
	}
	for id, qty := range want {
		if sold[id] != qty {
			return true
		}
	}
	return false
}

// MarkFailed records that the gateway reported the session expired or its
// payment failed. Only pending records change.
func (s *CheckoutService) MarkFailed(ctx context.Context, sessionRef string) error {
	const op = "checkout.mark_failed"

	sessionRef = strings.TrimSpace(sessionRef)
	if sessionRef == "" {
		return withOp(ErrSessionRefRequired, op)
	}
	return s.markFailed(ctx, sessionRef)
}

func (s *CheckoutService) markFailed(ctx context.Context, sessionRef string) error {
	const op = "checkout.mark_failed"
	log := s.logger.With("session_ref", sessionRef)

	row, err := s.store.GetSettlementBySessionRef(ctx, sessionRef)
	if postgres.IsNoRows(err) {
		return nil
	}
	if err != nil {
		return domain.Internal(err, op, "failed to load settlement")
	}
	if status := domain.SettlementStatus(row.Status); !status.CanTransitionTo(domain.CheckoutPaymentFailed) {
		log.Info("ignoring payment failure", "status", status.CheckoutStatus())
		return nil
	}

	// The update is guarded on pending, so a settle that won the race keeps
	// its confirmed record.
	n, err := s.store.MarkSettlementFailed(ctx, sessionRef)
	if err != nil {
		return domain.Internal(err, op, "failed to mark settlement failed")
	}
	if n > 0 {
		s.metrics.Settlement("failed")
		log.Info("checkout payment failed", "status", domain.CheckoutPaymentFailed)
	}
	return nil
}

// GetSettlement returns the settlement record for its owner.
func (s *CheckoutService) GetSettlement(ctx context.Context, user domain.Identity, sessionRef string) (*domain.SettlementRecord, error) {
	const op = "checkout.get_settlement"

	if user.IsZero() {
		return nil, withOp(domain.ErrUnauthenticated, op)
	}

	row, err := s.store.GetSettlementBySessionRef(ctx, sessionRef)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, domain.NotFound(op, "settlement", sessionRef)
		}
		return nil, domain.Internal(err, op, "failed to load settlement")
	}
	// Another user's record is reported as missing.
	if row.UserEmail != user.Email {
		return nil, domain.NotFound(op, "settlement", sessionRef)
	}

	rec, err := postgres.SettlementFromRow(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode settlement")
	}
	return rec, nil
}
