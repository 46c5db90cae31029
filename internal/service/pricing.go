package service

import (
	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/repository"
)

// priceCartRows turns joined cart rows into priced items at current catalog
// prices. Rows whose product no longer exists are returned as dropped.
func priceCartRows(rows []repository.ListCartItemsRow) (items []domain.CartItem, dropped []domain.DroppedLine) {
	items = make([]domain.CartItem, 0, len(rows))
	for _, row := range rows {
		if !row.ProductName.Valid || !row.ProductPrice.Valid {
			dropped = append(dropped, domain.NewDroppedLine(row.LineID, row.ProductID, row.Quantity))
			continue
		}

		item := domain.CartItem{
			LineID:    row.LineID,
			ProductID: row.ProductID,
			Name:      row.ProductName.String,
			UnitPrice: row.ProductPrice.Decimal,
			Quantity:  row.Quantity,
		}
		if len(row.ProductPictures) > 0 {
			item.Picture = row.ProductPictures[0]
		}
		items = append(items, item)
	}
	return items, dropped
}
