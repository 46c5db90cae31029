package domain

import "testing"

func TestCheckoutStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to CheckoutStatus
		want     bool
	}{
		{CheckoutInitiated, CheckoutSessionCreated, true},
		{CheckoutSessionCreated, CheckoutPaymentConfirmed, true},
		{CheckoutSessionCreated, CheckoutPaymentFailed, true},
		{CheckoutPaymentConfirmed, CheckoutSettled, true},
		{CheckoutInitiated, CheckoutSettled, false},
		{CheckoutSessionCreated, CheckoutSettled, false},
		{CheckoutSettled, CheckoutPaymentConfirmed, false},
		{CheckoutPaymentFailed, CheckoutPaymentConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckoutStatus_IsTerminal(t *testing.T) {
	if !CheckoutSettled.IsTerminal() || !CheckoutPaymentFailed.IsTerminal() {
		t.Error("settled and failed should be terminal")
	}
	if CheckoutSessionCreated.IsTerminal() {
		t.Error("session created should not be terminal")
	}
}

func TestSettlementStatus_CheckoutStatus(t *testing.T) {
	if got := SettlementPending.CheckoutStatus(); got != CheckoutSessionCreated {
		t.Errorf("pending maps to %s", got)
	}
	if got := SettlementConfirmed.CheckoutStatus(); got != CheckoutSettled {
		t.Errorf("confirmed maps to %s", got)
	}
	if got := SettlementFailed.CheckoutStatus(); got != CheckoutPaymentFailed {
		t.Errorf("failed maps to %s", got)
	}
}

func TestSettlementStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from SettlementStatus
		to   CheckoutStatus
		want bool
	}{
		{SettlementPending, CheckoutPaymentConfirmed, true},
		{SettlementPending, CheckoutPaymentFailed, true},
		{SettlementFailed, CheckoutPaymentConfirmed, false},
		{SettlementFailed, CheckoutPaymentFailed, false},
		{SettlementConfirmed, CheckoutPaymentFailed, false},
		{SettlementConfirmed, CheckoutPaymentConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}
