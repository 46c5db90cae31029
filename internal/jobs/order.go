// Package jobs defines background job types, their payloads, and how each
// is processed. Jobs are enqueued inside the settlement transaction, so a
// receipt or event exists if and only if the order settled.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/repository"
)

// Job type constants
const (
	JobTypeOrderReceipt = "email:order_receipt"
	JobTypeOrderSettled = "event:order_settled"
)

// OrderSettledPayload is the payload of both settlement jobs.
type OrderSettledPayload struct {
	SettlementID uuid.UUID               `json:"settlement_id"`
	Email        string                  `json:"email"`
	SessionRef   string                  `json:"session_ref"`
	Lines        []domain.SettlementLine `json:"lines"`
	Subtotal     decimal.Decimal         `json:"subtotal"`
	Currency     string                  `json:"currency"`
	SettledAt    time.Time               `json:"settled_at"`
}

// NewOrderSettledPayload builds the payload from a confirmed record.
func NewOrderSettledPayload(rec *domain.SettlementRecord) OrderSettledPayload {
	p := OrderSettledPayload{
		SettlementID: rec.ID,
		Email:        rec.UserEmail,
		SessionRef:   rec.SessionRef,
		Lines:        rec.Lines,
		Subtotal:     rec.Subtotal,
		Currency:     rec.Currency,
		SettledAt:    rec.UpdatedAt,
	}
	if rec.SettledAt != nil {
		p.SettledAt = *rec.SettledAt
	}
	return p
}

// EnqueueOrderSettled enqueues the receipt email and the settled event.
// Call it with the settlement transaction's Querier.
func EnqueueOrderSettled(ctx context.Context, q repository.Querier, payload OrderSettledPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for _, p := range []repository.EnqueueJobParams{
		{JobType: JobTypeOrderReceipt, Payload: data, MaxRetries: 5, TimeoutSeconds: 30},
		{JobType: JobTypeOrderSettled, Payload: data, MaxRetries: 10, TimeoutSeconds: 10},
	} {
		if _, err := q.EnqueueJob(ctx, p); err != nil {
			return fmt.Errorf("enqueue %s: %w", p.JobType, err)
		}
	}
	return nil
}
