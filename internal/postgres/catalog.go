package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/repository"
)

const maxListLimit = 100

// CatalogService implements domain.CatalogService using PostgreSQL.
type CatalogService struct {
	store  Store
	logger *slog.Logger
}

// Compile-time check that CatalogService implements domain.CatalogService.
var _ domain.CatalogService = (*CatalogService)(nil)

// NewCatalogService creates a new PostgreSQL-backed catalog service.
func NewCatalogService(store Store, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: logger,
	}
}

// =============================================================================
// READS
// =============================================================================

// GetProduct returns a single product.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if IsNoRows(err) {
			return nil, domain.NotFound("catalog.get_product", "product", id.String())
		}
		return nil, domain.Internal(err, "catalog.get_product", "failed to get product")
	}

	p := ProductFromRow(row)
	return &p, nil
}

// ListByCategory returns the newest products in a category.
func (s *CatalogService) ListByCategory(ctx context.Context, category domain.Category, limit int32) ([]domain.Product, error) {
	const op = "catalog.list_by_category"

	if !category.Valid() {
		return nil, domain.Errorf(domain.EINVALID, op, "unknown category: %s", category)
	}

	rows, err := s.store.ListProductsByCategory(ctx, repository.ListProductsByCategoryParams{
		Category: string(category),
		Limit:    clampLimit(limit, maxListLimit),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list products")
	}

	return productsFromRows(rows), nil
}

// TopSelling returns the best sellers by units sold.
func (s *CatalogService) TopSelling(ctx context.Context, limit int32) ([]domain.Product, error) {
	if limit <= 0 {
		limit = domain.DefaultTopSellingLimit
	}

	rows, err := s.store.ListTopSellingProducts(ctx, clampLimit(limit, maxListLimit))
	if err != nil {
		return nil, domain.Internal(err, "catalog.top_selling", "failed to list top selling products")
	}

	return productsFromRows(rows), nil
}

// =============================================================================
// INVENTORY
// =============================================================================

// RecordSale increments one product's units-sold counter.
func (s *CatalogService) RecordSale(ctx context.Context, productID uuid.UUID, quantity int32) (*domain.Product, error) {
	const op = "catalog.record_sale"

	if quantity <= 0 {
		return nil, domain.Errorf(domain.EINVALID, op, "quantity must be greater than 0, got %d", quantity)
	}

	row, err := s.store.IncrementProductQtySold(ctx, repository.IncrementProductQtySoldParams{
		Quantity: quantity,
		ID:       productID,
	})
	if err != nil {
		if IsNoRows(err) {
			return nil, domain.NotFound(op, "product", productID.String())
		}
		return nil, domain.Internal(err, op, "failed to record sale")
	}

	p := ProductFromRow(row)
	return &p, nil
}

// RecordSaleBatch applies every line in one transaction.
func (s *CatalogService) RecordSaleBatch(ctx context.Context, lines []domain.SaleLine) error {
	if err := ValidateSaleLines(lines); err != nil {
		return err
	}

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		return RecordSaleBatchTx(ctx, q, lines)
	})
	if err != nil {
		s.logger.Warn("inventory batch rolled back", "lines", len(lines), "error", err)
		return err
	}
	return nil
}

// ValidateSaleLines rejects non-positive quantities before any row is touched.
func ValidateSaleLines(lines []domain.SaleLine) error {
	for i, line := range lines {
		if line.Quantity <= 0 {
			return domain.Errorf(domain.EINVALID, "catalog.record_sale_batch",
				"line %d: quantity must be greater than 0, got %d", i, line.Quantity)
		}
	}
	return nil
}

// RecordSaleBatchTx increments every line's counter using q, which must be
// bound to an open transaction. The first missing product aborts the batch
// with *domain.PartialBatchFailure; the caller's rollback undoes earlier lines.
func RecordSaleBatchTx(ctx context.Context, q repository.Querier, lines []domain.SaleLine) error {
	const op = "catalog.record_sale_batch"

	for i, line := range lines {
		_, err := q.IncrementProductQtySold(ctx, repository.IncrementProductQtySoldParams{
			Quantity: line.Quantity,
			ID:       line.ProductID,
		})
		if err == nil {
			continue
		}
		if IsNoRows(err) {
			return &domain.PartialBatchFailure{
				ProductID: line.ProductID.String(),
				Index:     i,
				Err:       domain.NotFound(op, "product", line.ProductID.String()),
			}
		}
		return domain.Internal(fmt.Errorf("line %d: %w", i, err), op, "failed to record sale")
	}
	return nil
}

// =============================================================================
// MAPPING
// =============================================================================

// ProductFromRow maps a repository row to the domain type.
func ProductFromRow(row repository.Product) domain.Product {
	pictures := row.Pictures
	if pictures == nil {
		pictures = []string{}
	}
	return domain.Product{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Category:    domain.Category(row.Category),
		Price:       row.Price,
		Pictures:    pictures,
		UnitsSold:   row.QtySold,
		CreatedAt:   Time(row.CreatedAt),
	}
}

func productsFromRows(rows []repository.Product) []domain.Product {
	products := make([]domain.Product, len(rows))
	for i, row := range rows {
		products[i] = ProductFromRow(row)
	}
	return products
}

func clampLimit(limit, ceiling int32) int32 {
	if limit <= 0 || limit > ceiling {
		return ceiling
	}
	return limit
}
