package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider is an in-memory Provider for tests. Sessions start open and
// unpaid; call Complete or Expire to move them along.
type MockProvider struct {
	// CreateCheckoutSessionFunc overrides session creation.
	CreateCheckoutSessionFunc func(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// GetCheckoutSessionFunc overrides session lookup.
	GetCheckoutSessionFunc func(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// WebhookSignature, when set, is the only signature ConstructWebhookEvent accepts.
	WebhookSignature string

	mu       sync.Mutex
	sessions map[string]*CheckoutSession
	created  map[string]CreateCheckoutSessionParams
	calls    []string
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		sessions: make(map[string]*CheckoutSession),
		created:  make(map[string]CreateCheckoutSessionParams),
	}
}

// CreateCheckoutSession records the params and returns an open session.
// Reusing an idempotency key returns the earlier session.
func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	m.record(fmt.Sprintf("CreateCheckoutSession(%d items)", len(params.LineItems)))

	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}
	if len(params.LineItems) == 0 {
		return nil, ErrNoLineItems
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if params.IdempotencyKey != "" {
		for id, p := range m.created {
			if p.IdempotencyKey == params.IdempotencyKey {
				return copySession(m.sessions[id]), nil
			}
		}
	}

	var total int64
	for _, li := range params.LineItems {
		total += li.UnitAmount * li.Quantity
	}

	id := "cs_test_" + uuid.NewString()
	s := &CheckoutSession{
		ID:                id,
		URL:               "https://checkout.example.test/pay/" + id,
		Status:            SessionStatusOpen,
		PaymentStatus:     PaymentStatusUnpaid,
		CustomerEmail:     params.CustomerEmail,
		ClientReferenceID: params.ClientReferenceID,
		AmountTotal:       total,
		Currency:          params.Currency,
		Metadata:          params.Metadata,
		ExpiresAt:         time.Now().Add(24 * time.Hour),
	}
	m.sessions[id] = s
	m.created[id] = params
	return copySession(s), nil
}

// GetCheckoutSession returns a stored session or ErrSessionNotFound.
func (m *MockProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	m.record(fmt.Sprintf("GetCheckoutSession(%s)", sessionID))

	if m.GetCheckoutSessionFunc != nil {
		return m.GetCheckoutSessionFunc(ctx, sessionID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

// MockEvent is the payload format ConstructWebhookEvent accepts.
type MockEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// ConstructWebhookEvent decodes a MockEvent and attaches the stored session.
func (m *MockProvider) ConstructWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	m.record("ConstructWebhookEvent")

	if m.WebhookSignature != "" && signature != m.WebhookSignature {
		return nil, ErrInvalidWebhookSignature
	}

	var ev MockEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}

	out := &WebhookEvent{ID: ev.ID, Type: ev.Type}
	m.mu.Lock()
	if s, ok := m.sessions[ev.SessionID]; ok {
		out.Session = copySession(s)
	} else if ev.SessionID != "" {
		out.Session = &CheckoutSession{ID: ev.SessionID}
	}
	m.mu.Unlock()
	return out, nil
}

// Complete marks a session as paid.
func (m *MockProvider) Complete(sessionID string) {
	m.setStatus(sessionID, SessionStatusComplete, PaymentStatusPaid)
}

// Expire marks a session as expired and unpaid.
func (m *MockProvider) Expire(sessionID string) {
	m.setStatus(sessionID, SessionStatusExpired, PaymentStatusUnpaid)
}

func (m *MockProvider) setStatus(sessionID, status, payment string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.Status = status
		s.PaymentStatus = payment
	}
}

// CreatedParams returns the params a session was created with.
func (m *MockProvider) CreatedParams(sessionID string) (CreateCheckoutSessionParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.created[sessionID]
	return p, ok
}

// CallLog returns the recorded method calls in order.
func (m *MockProvider) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount counts recorded calls with the given method name.
func (m *MockProvider) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if len(c) >= len(method) && c[:len(method)] == method {
			n++
		}
	}
	return n
}

// Reset clears sessions and the call log.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*CheckoutSession)
	m.created = make(map[string]CreateCheckoutSessionParams)
	m.calls = nil
}

func (m *MockProvider) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func copySession(s *CheckoutSession) *CheckoutSession {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
