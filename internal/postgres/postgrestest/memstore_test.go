package postgrestest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/storefront/internal/repository"
)

func TestMemStore_FailOn(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	p := store.AddProduct("A", "men", "10.00")
	boom := errors.New("connection refused")

	store.FailOn("GetProduct", boom)
	_, err := store.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, boom)

	store.ClearFailure("GetProduct")
	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, 2, store.Calls("GetProduct"))
}

func TestMemStore_FailOnConcurrentWithCalls(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	p := store.AddProduct("A", "men", "10.00")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.FailOn("ListCartItems", errors.New("flaky"))
				store.ClearFailure("ListCartItems")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = store.ListCartItems(ctx, "shopper@example.com")
				_, _ = store.GetProduct(ctx, p.ID)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, store.Calls("ListCartItems"))
}

func TestMemStore_ConfirmOnlyPending(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	rec, err := store.CreateSettlement(ctx, repository.CreateSettlementParams{
		UserEmail:  "shopper@example.com",
		SessionRef: "cs_test_1",
		Status:     "pending",
		Lines:      []byte("[]"),
	})
	require.NoError(t, err)

	n, err := store.MarkSettlementFailed(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.ConfirmSettlement(ctx, rec.ID)
	assert.Error(t, err)

	ref, err := store.GetLatestFailedSettlementRef(ctx, "shopper@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", ref)

	_, err = store.GetLatestFailedSettlementRef(ctx, "other@example.com")
	assert.Error(t, err)
}
