package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/postgres"
	"github.com/dukerupert/storefront/internal/repository"
	"github.com/dukerupert/storefront/internal/telemetry"
)

// CartService implements domain.CartService over the cart_lines table.
// Lines for one user are not locked against each other; the last write
// to a line wins.
type CartService struct {
	store   postgres.Store
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
}

var _ domain.CartService = (*CartService)(nil)

// NewCartService creates a CartService. metrics may be nil.
func NewCartService(store postgres.Store, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *CartService {
	return &CartService{store: store, metrics: metrics, logger: logger}
}

// AddOrIncrement sets the quantity of productID in the user's cart,
// creating the line if needed. A repeat add replaces the quantity.
func (s *CartService) AddOrIncrement(ctx context.Context, user domain.Identity, productID uuid.UUID, quantity int32) (*domain.CartLine, error) {
	const op = "cart.add"

	if user.IsZero() {
		return nil, withOp(domain.ErrUnauthenticated, op)
	}
	if !domain.ValidQuantity(quantity) {
		return nil, withOp(domain.ErrInvalidQuantity, op)
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, domain.NotFound(op, "product", productID.String())
		}
		return nil, domain.Internal(err, op, "failed to load product")
	}

	row, err := s.store.UpsertCartLine(ctx, repository.UpsertCartLineParams{
		UserEmail: user.Email,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to save cart line")
	}

	s.metrics.CartLineAdded(product.Category)
	return postgres.CartLineFromRow(row), nil
}

// GetCart returns the user's cart priced at current catalog prices.
// Lines whose product was removed from the catalog are left out of the
// totals and listed as dropped so the shopper can remove them.
func (s *CartService) GetCart(ctx context.Context, user domain.Identity) (*domain.CartSnapshot, error) {
	const op = "cart.get"

	if user.IsZero() {
		return nil, withOp(domain.ErrUnauthenticated, op)
	}

	rows, err := s.store.ListCartItems(ctx, user.Email)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load cart")
	}

	items, dropped := priceCartRows(rows)
	for _, d := range dropped {
		s.logger.Warn("cart line references missing product", "user", user.Email, "line_id", d.LineID, "product_id", d.ProductID)
		s.metrics.LineDropped("snapshot")
	}

	return domain.NewCartSnapshot(items, dropped), nil
}

// UpdateQuantity sets a line's quantity. Zero is rejected; use RemoveLine.
// The line keeps its quantity when the new one is out of range.
func (s *CartService) UpdateQuantity(ctx context.Context, user domain.Identity, lineID uuid.UUID, quantity int32) (*domain.CartLine, error) {
	const op = "cart.update"

	if user.IsZero() {
		return nil, withOp(domain.ErrUnauthenticated, op)
	}
	if !domain.ValidQuantity(quantity) {
		return nil, withOp(domain.ErrInvalidQuantity, op)
	}

	row, err := s.store.UpdateCartLineQuantity(ctx, repository.UpdateCartLineQuantityParams{
		ID:        lineID,
		UserEmail: user.Email,
		Quantity:  quantity,
	})
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, domain.NotFound(op, "cart line", lineID.String())
		}
		return nil, domain.Internal(err, op, "failed to update cart line")
	}
	return postgres.CartLineFromRow(row), nil
}

// RemoveLine deletes one of the user's lines.
func (s *CartService) RemoveLine(ctx context.Context, user domain.Identity, lineID uuid.UUID) error {
	const op = "cart.remove"

	if user.IsZero() {
		return withOp(domain.ErrUnauthenticated, op)
	}

	n, err := s.store.DeleteCartLine(ctx, repository.DeleteCartLineParams{ID: lineID, UserEmail: user.Email})
	if err != nil {
		return domain.Internal(err, op, "failed to remove cart line")
	}
	if n == 0 {
		return domain.NotFound(op, "cart line", lineID.String())
	}
	return nil
}

// ClearCart deletes all of the user's lines. Clearing an empty cart succeeds.
func (s *CartService) ClearCart(ctx context.Context, user domain.Identity) error {
	const op = "cart.clear"

	if user.IsZero() {
		return withOp(domain.ErrUnauthenticated, op)
	}

	n, err := s.store.ClearCart(ctx, user.Email)
	if err != nil {
		return domain.Internal(err, op, "failed to clear cart")
	}
	if n > 0 {
		s.metrics.CartClearedByUser()
	}
	return nil
}
