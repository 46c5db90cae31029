package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/postgres"
	"github.com/dukerupert/storefront/internal/postgres/postgrestest"
)

func newTestCatalog(t *testing.T) (*postgres.CatalogService, *postgrestest.MemStore) {
	t.Helper()
	store := postgrestest.NewMemStore()
	return postgres.NewCatalogService(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestCatalogService_GetProduct(t *testing.T) {
	svc, store := newTestCatalog(t)
	ctx := context.Background()
	p := store.AddProduct("Linen Shirt", "men", "10.00")

	t.Run("existing product", func(t *testing.T) {
		got, err := svc.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Linen Shirt", got.Name)
		assert.Equal(t, domain.CategoryMen, got.Category)
		assert.Equal(t, "10", got.Price.String())
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := svc.GetProduct(ctx, uuid.New())
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})
}

func TestCatalogService_ListByCategory(t *testing.T) {
	svc, store := newTestCatalog(t)
	ctx := context.Background()
	store.AddProduct("Old", "women", "1.00")
	store.AddProduct("New", "women", "2.00")
	store.AddProduct("Other", "men", "3.00")

	got, err := svc.ListByCategory(ctx, domain.CategoryWomen, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "New", got[0].Name, "newest first")

	_, err = svc.ListByCategory(ctx, domain.Category("kids"), 10)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestCatalogService_TopSelling(t *testing.T) {
	svc, store := newTestCatalog(t)
	ctx := context.Background()
	a := store.AddProduct("A", "men", "1.00")
	b := store.AddProduct("B", "men", "1.00")

	_, err := svc.RecordSale(ctx, a.ID, 1)
	require.NoError(t, err)
	_, err = svc.RecordSale(ctx, b.ID, 5)
	require.NoError(t, err)

	got, err := svc.TopSelling(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, int32(5), got[0].UnitsSold)
}

func TestCatalogService_RecordSale(t *testing.T) {
	tests := []struct {
		name     string
		quantity int32
		missing  bool
		wantCode string
		wantSold int32
	}{
		{name: "increments counter", quantity: 3, wantSold: 3},
		{name: "zero quantity is invalid", quantity: 0, wantCode: domain.EINVALID},
		{name: "negative quantity is invalid", quantity: -2, wantCode: domain.EINVALID},
		{name: "missing product", quantity: 1, missing: true, wantCode: domain.ENOTFOUND},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestCatalog(t)
			p := store.AddProduct("A", "men", "1.00")
			id := p.ID
			if tt.missing {
				id = uuid.New()
			}

			_, err := svc.RecordSale(context.Background(), id, tt.quantity)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
				assert.Equal(t, int32(0), store.Product(p.ID).QtySold)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSold, store.Product(p.ID).QtySold)
		})
	}
}

func TestCatalogService_RecordSaleBatch(t *testing.T) {
	t.Run("applies every line", func(t *testing.T) {
		svc, store := newTestCatalog(t)
		a := store.AddProduct("A", "men", "10.00")
		b := store.AddProduct("B", "men", "5.00")

		err := svc.RecordSaleBatch(context.Background(), []domain.SaleLine{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, int32(2), store.Product(a.ID).QtySold)
		assert.Equal(t, int32(1), store.Product(b.ID).QtySold)
	})

	t.Run("missing product rolls back the whole batch", func(t *testing.T) {
		svc, store := newTestCatalog(t)
		a := store.AddProduct("A", "men", "10.00")
		c := store.AddProduct("C", "men", "5.00")
		missing := uuid.New()

		err := svc.RecordSaleBatch(context.Background(), []domain.SaleLine{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: missing, Quantity: 1},
			{ProductID: c.ID, Quantity: 4},
		})

		var pbf *domain.PartialBatchFailure
		require.True(t, errors.As(err, &pbf), "expected PartialBatchFailure, got %v", err)
		assert.Equal(t, missing.String(), pbf.ProductID)
		assert.Equal(t, 1, pbf.Index)
		assert.Equal(t, domain.EPARTIAL, domain.ErrorCode(err))

		assert.Equal(t, int32(0), store.Product(a.ID).QtySold, "first line must be rolled back")
		assert.Equal(t, int32(0), store.Product(c.ID).QtySold, "later lines must not apply")
	})

	t.Run("non-positive quantity is rejected before storage", func(t *testing.T) {
		svc, store := newTestCatalog(t)
		a := store.AddProduct("A", "men", "10.00")

		err := svc.RecordSaleBatch(context.Background(), []domain.SaleLine{
			{ProductID: a.ID, Quantity: 1},
			{ProductID: a.ID, Quantity: 0},
		})
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		assert.Equal(t, 0, store.Calls("ExecTx"))
		assert.Equal(t, int32(0), store.Product(a.ID).QtySold)
	})
}
