package domain

import (
	"context"
	"errors"
	"testing"
)

func TestIdentityContext(t *testing.T) {
	t.Run("IdentityFromContext returns false when no identity", func(t *testing.T) {
		_, ok := IdentityFromContext(context.Background())
		if ok {
			t.Error("expected no identity")
		}
	})

	t.Run("IdentityFromContext returns identity when set", func(t *testing.T) {
		expected := Identity{Subject: "u-1", Email: "ada@example.com"}
		ctx := NewContextWithIdentity(context.Background(), expected)

		id, ok := IdentityFromContext(ctx)
		if !ok {
			t.Fatal("expected identity, got none")
		}
		if id != expected {
			t.Errorf("expected %+v, got %+v", expected, id)
		}
	})

	t.Run("zero identity is treated as absent", func(t *testing.T) {
		ctx := NewContextWithIdentity(context.Background(), Identity{})
		if _, ok := IdentityFromContext(ctx); ok {
			t.Error("zero identity should not count as authenticated")
		}
	})

	t.Run("RequireIdentity returns ErrUnauthenticated when missing", func(t *testing.T) {
		_, err := RequireIdentity(context.Background())
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
		if ErrorCode(err) != EUNAUTHORIZED {
			t.Errorf("expected code %q, got %q", EUNAUTHORIZED, ErrorCode(err))
		}
	})
}

func TestIdentity_Matches(t *testing.T) {
	id := Identity{Email: "ada@example.com"}

	tests := []struct {
		user string
		want bool
	}{
		{"ada@example.com", true},
		{"ADA@Example.com", true},
		{" ada@example.com ", true},
		{"bob@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			if got := id.Matches(tt.user); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.user, got, tt.want)
			}
		})
	}
}

func TestRequestIDContext(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}

	ctx := NewContextWithRequestID(context.Background(), "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}
