package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/postgres/postgrestest"
)

var shopper = domain.Identity{Subject: "user-1", Email: "shopper@example.com"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCartService(t *testing.T) (*CartService, *postgrestest.MemStore) {
	t.Helper()
	store := postgrestest.NewMemStore()
	return NewCartService(store, nil, discardLogger()), store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCartService_AddOrIncrement(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a line", func(t *testing.T) {
		svc, store := newCartService(t)
		p := store.AddProduct("Linen Shirt", "men", "10.00")

		line, err := svc.AddOrIncrement(ctx, shopper, p.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, p.ID, line.ProductID)
		assert.Equal(t, int32(2), line.Quantity)
		assert.Equal(t, shopper.Email, line.UserEmail)
	})

	t.Run("repeat add replaces quantity", func(t *testing.T) {
		svc, store := newCartService(t)
		p := store.AddProduct("Linen Shirt", "men", "10.00")

		first, err := svc.AddOrIncrement(ctx, shopper, p.ID, 2)
		require.NoError(t, err)
		second, err := svc.AddOrIncrement(ctx, shopper, p.ID, 5)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, int32(5), second.Quantity)
		assert.Len(t, store.CartLines(shopper.Email), 1)
	})

	t.Run("rejects quantity below one", func(t *testing.T) {
		svc, store := newCartService(t)
		p := store.AddProduct("Linen Shirt", "men", "10.00")

		for _, qty := range []int32{0, -3} {
			_, err := svc.AddOrIncrement(ctx, shopper, p.ID, qty)
			assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		}
		assert.Empty(t, store.CartLines(shopper.Email))
	})

	t.Run("rejects quantity above the cap", func(t *testing.T) {
		svc, store := newCartService(t)
		p := store.AddProduct("Linen Shirt", "men", "10.00")

		for _, qty := range []int32{domain.MaxLineQuantity + 1, math.MaxInt32} {
			_, err := svc.AddOrIncrement(ctx, shopper, p.ID, qty)
			assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		}
		assert.Empty(t, store.CartLines(shopper.Email))

		line, err := svc.AddOrIncrement(ctx, shopper, p.ID, domain.MaxLineQuantity)
		require.NoError(t, err)
		assert.Equal(t, int32(domain.MaxLineQuantity), line.Quantity)
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, _ := newCartService(t)

		_, err := svc.AddOrIncrement(ctx, shopper, uuid.New(), 1)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})

	t.Run("requires identity", func(t *testing.T) {
		svc, store := newCartService(t)
		p := store.AddProduct("Linen Shirt", "men", "10.00")

		_, err := svc.AddOrIncrement(ctx, domain.Identity{}, p.ID, 1)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}

func TestCartService_GetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("totals", func(t *testing.T) {
		svc, store := newCartService(t)
		a := store.AddProduct("A", "men", "10.00")
		b := store.AddProduct("B", "women", "5.00")
		_, err := svc.AddOrIncrement(ctx, shopper, a.ID, 2)
		require.NoError(t, err)
		_, err = svc.AddOrIncrement(ctx, shopper, b.ID, 1)
		require.NoError(t, err)

		snap, err := svc.GetCart(ctx, shopper)
		require.NoError(t, err)

		assert.Len(t, snap.Items, 2)
		assert.Equal(t, int64(3), snap.TotalItems)
		assert.True(t, dec("25.00").Equal(snap.Subtotal), "subtotal = %s", snap.Subtotal)
	})

	t.Run("empty cart is not an error", func(t *testing.T) {
		svc, _ := newCartService(t)

		snap, err := svc.GetCart(ctx, shopper)
		require.NoError(t, err)
		assert.Empty(t, snap.Items)
		assert.Equal(t, int64(0), snap.TotalItems)
		assert.True(t, snap.Subtotal.IsZero())
	})

	t.Run("reflects current price", func(t *testing.T) {
		svc, store := newCartService(t)
		p := store.AddProduct("A", "men", "10.00")
		_, err := svc.AddOrIncrement(ctx, shopper, p.ID, 2)
		require.NoError(t, err)

		store.SetPrice(p.ID, "12.50")

		snap, err := svc.GetCart(ctx, shopper)
		require.NoError(t, err)
		assert.True(t, dec("25.00").Equal(snap.Subtotal))
		assert.True(t, dec("12.50").Equal(snap.Items[0].UnitPrice))
	})

	t.Run("drops lines for deleted products", func(t *testing.T) {
		svc, store := newCartService(t)
		a := store.AddProduct("A", "men", "10.00")
		b := store.AddProduct("B", "men", "5.00")
		_, err := svc.AddOrIncrement(ctx, shopper, a.ID, 1)
		require.NoError(t, err)
		orphan, err := svc.AddOrIncrement(ctx, shopper, b.ID, 3)
		require.NoError(t, err)

		store.DeleteProduct(b.ID)

		snap, err := svc.GetCart(ctx, shopper)
		require.NoError(t, err)
		require.Len(t, snap.Items, 1)
		assert.Equal(t, a.ID, snap.Items[0].ProductID)
		assert.True(t, dec("10.00").Equal(snap.Subtotal))
		assert.Equal(t, int64(1), snap.TotalItems)

		require.Len(t, snap.Dropped, 1)
		assert.Equal(t, orphan.ID, snap.Dropped[0].LineID)
		assert.Equal(t, b.ID, snap.Dropped[0].ProductID)
		assert.Equal(t, int32(3), snap.Dropped[0].Quantity)
		assert.Contains(t, snap.Dropped[0].Warning, b.ID.String())

		// The line stays stored until the shopper removes it.
		assert.Len(t, store.CartLines(shopper.Email), 2)
	})

	t.Run("totals near the quantity cap do not wrap", func(t *testing.T) {
		svc, store := newCartService(t)
		for i := 0; i < 3; i++ {
			p := store.AddProduct(fmt.Sprintf("P%d", i), "men", "99999999.99")
			_, err := svc.AddOrIncrement(ctx, shopper, p.ID, domain.MaxLineQuantity)
			require.NoError(t, err)
		}

		snap, err := svc.GetCart(ctx, shopper)
		require.NoError(t, err)
		assert.Equal(t, int64(3*domain.MaxLineQuantity), snap.TotalItems)
		assert.True(t, dec("299699999970.03").Equal(snap.Subtotal), "subtotal = %s", snap.Subtotal)
	})

	t.Run("other users' lines are invisible", func(t *testing.T) {
		svc, store := newCartService(t)
		p := store.AddProduct("A", "men", "10.00")
		other := domain.Identity{Email: "other@example.com"}
		_, err := svc.AddOrIncrement(ctx, other, p.ID, 4)
		require.NoError(t, err)

		snap, err := svc.GetCart(ctx, shopper)
		require.NoError(t, err)
		assert.Empty(t, snap.Items)
	})
}

func TestCartService_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	svc, store := newCartService(t)
	p := store.AddProduct("A", "men", "10.00")
	line, err := svc.AddOrIncrement(ctx, shopper, p.ID, 2)
	require.NoError(t, err)

	t.Run("sets quantity", func(t *testing.T) {
		updated, err := svc.UpdateQuantity(ctx, shopper, line.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, int32(7), updated.Quantity)
	})

	t.Run("zero is rejected and leaves the line unchanged", func(t *testing.T) {
		_, err := svc.UpdateQuantity(ctx, shopper, line.ID, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

		lines := store.CartLines(shopper.Email)
		require.Len(t, lines, 1)
		assert.Equal(t, int32(7), lines[0].Quantity)
	})

	t.Run("above the cap is rejected and leaves the line unchanged", func(t *testing.T) {
		_, err := svc.UpdateQuantity(ctx, shopper, line.ID, domain.MaxLineQuantity+1)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		assert.Equal(t, int32(7), store.CartLines(shopper.Email)[0].Quantity)
	})

	t.Run("another user's line is not found", func(t *testing.T) {
		_, err := svc.UpdateQuantity(ctx, domain.Identity{Email: "other@example.com"}, line.ID, 1)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})

	t.Run("unknown line", func(t *testing.T) {
		_, err := svc.UpdateQuantity(ctx, shopper, uuid.New(), 1)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})
}

func TestCartService_RemoveLine(t *testing.T) {
	ctx := context.Background()
	svc, store := newCartService(t)
	p := store.AddProduct("A", "men", "10.00")
	line, err := svc.AddOrIncrement(ctx, shopper, p.ID, 1)
	require.NoError(t, err)

	err = svc.RemoveLine(ctx, domain.Identity{Email: "other@example.com"}, line.ID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	assert.Len(t, store.CartLines(shopper.Email), 1)

	require.NoError(t, svc.RemoveLine(ctx, shopper, line.ID))
	assert.Empty(t, store.CartLines(shopper.Email))

	err = svc.RemoveLine(ctx, shopper, line.ID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestCartService_ClearCart(t *testing.T) {
	ctx := context.Background()
	svc, store := newCartService(t)
	a := store.AddProduct("A", "men", "10.00")
	b := store.AddProduct("B", "men", "5.00")
	_, err := svc.AddOrIncrement(ctx, shopper, a.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddOrIncrement(ctx, shopper, b.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(ctx, shopper))
	assert.Empty(t, store.CartLines(shopper.Email))

	// idempotent
	require.NoError(t, svc.ClearCart(ctx, shopper))
}

func TestCartService_StorageFailure(t *testing.T) {
	svc, store := newCartService(t)
	store.FailOn("ListCartItems", errors.New("connection refused"))

	_, err := svc.GetCart(context.Background(), shopper)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Equal(t, "An internal error occurred. Please try again later.", domain.ErrorMessage(err))
}
