// Package inventory projects the on-hand contents of a representative's maleta.
package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

// Balance returns the signed on-hand quantity per product for repID:
// delivered + restocked - sold - returned. Adjustments never move stock.
func Balance(repID string, movements []models.Movement) (map[string]int, []string) {
	balance := make(map[string]int)
	order := make([]string, 0)

	for _, m := range movements {
		if m.RepresentativeID != repID {
			continue
		}
		var delta int
		switch m.Type {
		case models.MovementDelivered, models.MovementRestocked:
			delta = m.Quantity
		case models.MovementSold, models.MovementReturned:
			delta = -m.Quantity
		default:
			continue
		}
		if _, seen := balance[m.ProductID]; !seen {
			order = append(order, m.ProductID)
		}
		balance[m.ProductID] += delta
	}

	return balance, order
}

// Project builds the maleta of repID. Stock is valued at the catalog price at
// read time, not at the price the movements were recorded with, so the
// valuation follows catalog price changes.
func Project(repID string, movements []models.Movement, catalog models.Catalog) models.Maleta {
	balance, order := Balance(repID, movements)

	maleta := models.Maleta{
		RepresentativeID: repID,
		Items:            make([]models.MaletaItem, 0, len(order)),
		TotalValue:       decimal.Zero,
	}

	for _, productID := range order {
		qty := balance[productID]
		if qty < 0 {
			maleta.Oversold = append(maleta.Oversold, productID)
		}
		if qty <= 0 {
			continue
		}

		name, price := catalog.Lookup(productID)
		value := price.Mul(decimal.NewFromInt(int64(qty)))

		maleta.Items = append(maleta.Items, models.MaletaItem{
			ProductID: productID,
			Name:      name,
			Quantity:  qty,
			UnitPrice: price,
			Value:     value,
		})
		maleta.TotalQuantity += qty
		maleta.TotalValue = maleta.TotalValue.Add(value)
	}

	return maleta
}
