package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/repository"
)

// SettlementFromRow maps a settlement row, decoding its charged lines.
func SettlementFromRow(row repository.OrderSettlement) (*domain.SettlementRecord, error) {
	lines := []domain.SettlementLine{}
	if len(row.Lines) > 0 {
		if err := json.Unmarshal(row.Lines, &lines); err != nil {
			return nil, fmt.Errorf("decode settlement %s lines: %w", row.ID, err)
		}
	}

	return &domain.SettlementRecord{
		ID:         row.ID,
		UserEmail:  row.UserEmail,
		SessionRef: row.SessionRef,
		Status:     domain.SettlementStatus(row.Status),
		Lines:      lines,
		Subtotal:   row.Subtotal,
		Currency:   row.Currency,
		CreatedAt:  Time(row.CreatedAt),
		UpdatedAt:  Time(row.UpdatedAt),
		SettledAt:  TimePtr(row.SettledAt),
	}, nil
}

// CartLineFromRow maps a cart line row.
func CartLineFromRow(row repository.CartLine) *domain.CartLine {
	return &domain.CartLine{
		ID:        row.ID,
		UserEmail: row.UserEmail,
		ProductID: row.ProductID,
		Quantity:  row.Quantity,
		CreatedAt: Time(row.CreatedAt),
		UpdatedAt: Time(row.UpdatedAt),
	}
}
