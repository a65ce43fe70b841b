package consignment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/importer"
	"github.com/mamadbah2/maleta/internal/inventory"
)

// DeliveryLine is one product of a maleta mount or restock.
type DeliveryLine struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// SaleInput records a sale made by a representative.
type SaleInput struct {
	RepresentativeID string           `json:"representativeId" validate:"required"`
	ProductID        string           `json:"productId" validate:"required"`
	Quantity         int              `json:"quantity" validate:"gte=1"`
	Value            *decimal.Decimal `json:"value,omitempty"`
	Image            string           `json:"image,omitempty"`
}

// ReturnInput records products coming back from a maleta to central stock.
type ReturnInput struct {
	RepresentativeID string `json:"representativeId" validate:"required"`
	ProductID        string `json:"productId" validate:"required"`
	Quantity         int    `json:"quantity" validate:"gte=1"`
}

// AdjustmentInput records a signed correction on one derived bucket.
type AdjustmentInput struct {
	RepresentativeID string                  `json:"representativeId" validate:"required"`
	Target           models.AdjustmentTarget `json:"target" validate:"required"`
	Value            decimal.Decimal         `json:"value"`
}

// DeliverMaleta mounts a maleta: one DELIVERED movement per line, priced at
// the current catalog price, with central stock decremented accordingly.
func (s *Store) DeliverMaleta(ctx context.Context, repID string, lines []DeliveryLine) ([]models.Movement, error) {
	return s.shipToMaleta(ctx, repID, lines, models.MovementDelivered)
}

// Restock tops up a maleta already in the field.
func (s *Store) Restock(ctx context.Context, repID string, lines []DeliveryLine) ([]models.Movement, error) {
	return s.shipToMaleta(ctx, repID, lines, models.MovementRestocked)
}

func (s *Store) shipToMaleta(ctx context.Context, repID string, lines []DeliveryLine, typ models.MovementType) ([]models.Movement, error) {
	if repID == "" {
		return nil, fmt.Errorf("%w: representative is required", ErrInvalidInput)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no products selected", ErrInvalidInput)
	}
	for _, line := range lines {
		if err := s.check(line); err != nil {
			return nil, err
		}
	}

	var created []models.Movement
	err := s.mutate(ctx, func(d *models.Dataset) error {
		ri, err := findRepresentative(d, repID)
		if err != nil {
			return err
		}

		requested := make(map[string]int, len(lines))
		for _, line := range lines {
			requested[line.ProductID] += line.Quantity
		}
		for productID, qty := range requested {
			pi, err := findProduct(d, productID)
			if err != nil {
				return err
			}
			if d.Products[pi].Stock < qty {
				return fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, d.Products[pi].Name, d.Products[pi].Stock, qty)
			}
		}

		created = make([]models.Movement, 0, len(lines))
		for _, line := range lines {
			pi, _ := findProduct(d, line.ProductID)
			m, err := s.appendMovement(d, models.Movement{
				RepresentativeID: repID,
				ProductID:        line.ProductID,
				Type:             typ,
				Quantity:         line.Quantity,
				Value:            d.Products[pi].Price,
			})
			if err != nil {
				return err
			}
			d.Products[pi].Stock -= line.Quantity
			created = append(created, m)
		}

		d.Representatives[ri].MaletaStatus = models.MaletaInField
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("maleta shipped",
		zap.String("representative_id", repID),
		zap.String("type", string(typ)),
		zap.Int("lines", len(created)))
	return created, nil
}

// RecordSale appends a SOLD movement. The value defaults to the catalog
// price. Selling more than the maleta holds is recorded anyway and logged.
func (s *Store) RecordSale(ctx context.Context, in SaleInput) (models.Movement, error) {
	if err := s.check(in); err != nil {
		return models.Movement{}, err
	}

	var created models.Movement
	err := s.mutate(ctx, func(d *models.Dataset) error {
		if _, err := findRepresentative(d, in.RepresentativeID); err != nil {
			return err
		}
		pi, err := findProduct(d, in.ProductID)
		if err != nil {
			return err
		}

		value := d.Products[pi].Price
		if in.Value != nil {
			value = *in.Value
		}

		balance, _ := inventory.Balance(in.RepresentativeID, d.Movements)
		if onHand := balance[in.ProductID]; onHand < in.Quantity {
			s.logger.Warn("sale exceeds maleta balance",
				zap.String("representative_id", in.RepresentativeID),
				zap.String("product_id", in.ProductID),
				zap.Int("on_hand", onHand),
				zap.Int("quantity", in.Quantity))
		}

		created, err = s.appendMovement(d, models.Movement{
			RepresentativeID: in.RepresentativeID,
			ProductID:        in.ProductID,
			Type:             models.MovementSold,
			Quantity:         in.Quantity,
			Value:            value,
			Image:            in.Image,
		})
		return err
	})
	return created, err
}

// RecordReturn appends a RETURNED movement and puts the pieces back in
// central stock. Only pieces the maleta holds can be returned. When the maleta ends up empty the representative is
// marked at base.
func (s *Store) RecordReturn(ctx context.Context, in ReturnInput) (models.Movement, error) {
	if err := s.check(in); err != nil {
		return models.Movement{}, err
	}

	var created models.Movement
	err := s.mutate(ctx, func(d *models.Dataset) error {
		ri, err := findRepresentative(d, in.RepresentativeID)
		if err != nil {
			return err
		}
		pi, err := findProduct(d, in.ProductID)
		if err != nil {
			return err
		}

		balance, _ := inventory.Balance(in.RepresentativeID, d.Movements)
		if onHand := balance[in.ProductID]; onHand < in.Quantity {
			return fmt.Errorf("%w: %s holds %d of %s, return of %d",
				ErrInsufficientMaleta, in.RepresentativeID, onHand, in.ProductID, in.Quantity)
		}

		created, err = s.appendMovement(d, models.Movement{
			RepresentativeID: in.RepresentativeID,
			ProductID:        in.ProductID,
			Type:             models.MovementReturned,
			Quantity:         in.Quantity,
			Value:            d.Products[pi].Price,
		})
		if err != nil {
			return err
		}
		d.Products[pi].Stock += in.Quantity

		if inventory.Project(in.RepresentativeID, d.Movements, models.NewCatalog(d.Products)).TotalQuantity == 0 {
			d.Representatives[ri].MaletaStatus = models.MaletaAtBase
		}
		return nil
	})
	return created, err
}

// RecordAdjustment appends an ADJUSTMENT movement against the manual-adj product.
func (s *Store) RecordAdjustment(ctx context.Context, in AdjustmentInput) (models.Movement, error) {
	if err := s.check(in); err != nil {
		return models.Movement{}, err
	}

	var created models.Movement
	err := s.mutate(ctx, func(d *models.Dataset) error {
		if _, err := findRepresentative(d, in.RepresentativeID); err != nil {
			return err
		}
		var err error
		created, err = s.appendMovement(d, models.Movement{
			RepresentativeID: in.RepresentativeID,
			ProductID:        models.ManualAdjustmentProductID,
			Type:             models.MovementAdjustment,
			Quantity:         1,
			Value:            in.Value,
			AdjustmentTarget: in.Target,
		})
		return err
	})
	return created, err
}

// ImportSales parses pasted sales and books each one as a sold-value
// adjustment: imported sales carry a category, not a catalog product, so
// they never move maleta stock.
func (s *Store) ImportSales(ctx context.Context, text, repID string) ([]importer.SaleRecord, error) {
	records, err := importer.ParseSales(text, repID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	err = s.mutate(ctx, func(d *models.Dataset) error {
		if _, err := findRepresentative(d, repID); err != nil {
			return err
		}
		for _, r := range records {
			if _, err := s.appendMovement(d, models.Movement{
				RepresentativeID: repID,
				ProductID:        models.ManualAdjustmentProductID,
				Type:             models.MovementAdjustment,
				Quantity:         1,
				Value:            r.Value,
				AdjustmentTarget: models.AdjustSold,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sales imported", zap.String("representative_id", repID), zap.Int("count", len(records)))
	return records, nil
}
