package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukerupert/storefront/internal/email"
	"github.com/dukerupert/storefront/internal/events"
	"github.com/dukerupert/storefront/internal/repository"
)

// ReceiptSender sends order receipts. *email.Service implements it.
type ReceiptSender interface {
	SendOrderReceipt(ctx context.Context, receipt email.OrderReceipt) error
}

// Processor dispatches claimed jobs to their handlers.
type Processor struct {
	receipts  ReceiptSender // nil disables receipts
	publisher events.Publisher
	logger    *slog.Logger
}

// NewProcessor creates a Processor. A nil receipts sender skips receipt
// jobs; publisher should be events.NopPublisher when NATS is off.
func NewProcessor(receipts ReceiptSender, publisher events.Publisher, logger *slog.Logger) *Processor {
	return &Processor{receipts: receipts, publisher: publisher, logger: logger}
}

// Process runs one job.
func (p *Processor) Process(ctx context.Context, job *repository.Job) error {
	switch job.JobType {
	case JobTypeOrderReceipt:
		payload, err := decodeOrderSettled(job)
		if err != nil {
			return err
		}
		return p.sendReceipt(ctx, payload)

	case JobTypeOrderSettled:
		payload, err := decodeOrderSettled(job)
		if err != nil {
			return err
		}
		return p.publisher.Publish(ctx, events.SubjectOrderSettled, payload.SettlementID.String(), payload)

	default:
		return fmt.Errorf("unknown job type: %s", job.JobType)
	}
}

func (p *Processor) sendReceipt(ctx context.Context, payload OrderSettledPayload) error {
	if p.receipts == nil {
		p.logger.Info("smtp not configured, skipping order receipt", "settlement_id", payload.SettlementID)
		return nil
	}

	lines := make([]email.ReceiptLine, 0, len(payload.Lines))
	for _, l := range payload.Lines {
		lines = append(lines, email.ReceiptLine{Name: l.Name, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}

	return p.receipts.SendOrderReceipt(ctx, email.OrderReceipt{
		SettlementID: payload.SettlementID,
		Email:        payload.Email,
		SessionRef:   payload.SessionRef,
		Lines:        lines,
		Subtotal:     payload.Subtotal,
		Currency:     payload.Currency,
		SettledAt:    payload.SettledAt,
	})
}

func decodeOrderSettled(job *repository.Job) (OrderSettledPayload, error) {
	var payload OrderSettledPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal %s payload: %w", job.JobType, err)
	}
	return payload, nil
}
