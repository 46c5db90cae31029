package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCT DOMAIN TYPES
// =============================================================================

// Category is one of the fixed storefront categories.
type Category string

const (
	CategoryMen    Category = "men"
	CategoryWomen  Category = "women"
	CategoryUnisex Category = "unisex"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryMen, CategoryWomen, CategoryUnisex:
		return true
	}
	return false
}

// Product is a catalog entry. UnitsSold only ever grows, and only through
// order settlement.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Pictures    []string        `json:"pictures"`
	UnitsSold   int32           `json:"unitsSold"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// MarshalJSON writes the price with two decimal places.
func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		Price string `json:"price"`
	}{alias(p), Money(p.Price)})
}

// SaleLine is one product/quantity pair in an inventory batch.
type SaleLine struct {
	ProductID uuid.UUID
	Quantity  int32
}

// =============================================================================
// CATALOG SERVICE
// =============================================================================

// DefaultTopSellingLimit matches the storefront's best-seller shelf.
const DefaultTopSellingLimit = 12

// CatalogService reads the catalog and applies sale counters.
// Product ingestion is handled elsewhere.
type CatalogService interface {
	// GetProduct returns a single product or a NotFound error.
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// ListByCategory returns the newest products in category, up to limit.
	ListByCategory(ctx context.Context, category Category, limit int32) ([]Product, error)

	// TopSelling returns products ordered by units sold, up to limit.
	TopSelling(ctx context.Context, limit int32) ([]Product, error)

	// RecordSale increments one product's units-sold counter.
	RecordSale(ctx context.Context, productID uuid.UUID, quantity int32) (*Product, error)

	// RecordSaleBatch applies every line in one transaction or none of them.
	// A failing line yields *PartialBatchFailure.
	RecordSaleBatch(ctx context.Context, lines []SaleLine) error
}
