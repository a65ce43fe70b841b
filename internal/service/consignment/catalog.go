package consignment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

// RegisterRepresentative adds a new representative. New representatives are
// active and start with the maleta at base.
func (s *Store) RegisterRepresentative(ctx context.Context, rep models.Representative) (models.Representative, error) {
	rep.Name = strings.TrimSpace(rep.Name)
	if err := s.check(rep); err != nil {
		return models.Representative{}, err
	}
	if err := checkLease(rep); err != nil {
		return models.Representative{}, err
	}

	rep.ID = s.newID()
	rep.Active = true
	if !rep.MaletaStatus.Valid() {
		rep.MaletaStatus = models.MaletaAtBase
	}

	err := s.mutate(ctx, func(d *models.Dataset) error {
		d.Representatives = append(d.Representatives, rep)
		return nil
	})
	if err != nil {
		return models.Representative{}, err
	}

	s.logger.Info("representative registered", zap.String("representative_id", rep.ID), zap.String("name", rep.Name))
	return rep, nil
}

// UpdateRepresentative replaces the editable fields of an existing representative.
func (s *Store) UpdateRepresentative(ctx context.Context, rep models.Representative) (models.Representative, error) {
	rep.Name = strings.TrimSpace(rep.Name)
	if err := s.check(rep); err != nil {
		return models.Representative{}, err
	}
	if err := checkLease(rep); err != nil {
		return models.Representative{}, err
	}
	if rep.MaletaStatus != "" && !rep.MaletaStatus.Valid() {
		return models.Representative{}, fmt.Errorf("%w: maleta status %q", ErrInvalidInput, rep.MaletaStatus)
	}

	var updated models.Representative
	err := s.mutate(ctx, func(d *models.Dataset) error {
		i, err := findRepresentative(d, rep.ID)
		if err != nil {
			return err
		}
		if rep.MaletaStatus == "" {
			rep.MaletaStatus = d.Representatives[i].MaletaStatus
		}
		d.Representatives[i] = rep
		updated = rep
		return nil
	})
	return updated, err
}

// SetRepresentativeActive toggles the soft lifecycle flag. Representatives
// are never deleted.
func (s *Store) SetRepresentativeActive(ctx context.Context, id string, active bool) error {
	return s.mutate(ctx, func(d *models.Dataset) error {
		i, err := findRepresentative(d, id)
		if err != nil {
			return err
		}
		d.Representatives[i].Active = active
		return nil
	})
}

// AddProduct adds a catalog entry.
func (s *Store) AddProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p, err := s.normalizeProduct(p)
	if err != nil {
		return models.Product{}, err
	}
	p.ID = s.newID()

	err = s.mutate(ctx, func(d *models.Dataset) error {
		d.Products = append(d.Products, p)
		return nil
	})
	if err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// UpdateProduct replaces an existing catalog entry. Price changes reprice
// every maleta holding the product from the next read on.
func (s *Store) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p, err := s.normalizeProduct(p)
	if err != nil {
		return models.Product{}, err
	}

	err = s.mutate(ctx, func(d *models.Dataset) error {
		i, err := findProduct(d, p.ID)
		if err != nil {
			return err
		}
		d.Products[i] = p
		return nil
	})
	if err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// ImportProducts adds a batch of extracted products atomically: one invalid
// entry rejects the whole batch.
func (s *Store) ImportProducts(ctx context.Context, batch []models.ExtractedProduct) ([]models.Product, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	products := make([]models.Product, 0, len(batch))
	for i, e := range batch {
		category, ok := models.ParseCategory(e.Category)
		if !ok {
			return nil, fmt.Errorf("%w: item %d: unknown category %q", ErrInvalidInput, i+1, e.Category)
		}
		p, err := s.normalizeProduct(models.Product{
			Name:     e.Name,
			SKU:      e.SKU,
			Category: category,
			Price:    e.Price,
			Stock:    e.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		p.ID = s.newID()
		products = append(products, p)
	}

	err := s.mutate(ctx, func(d *models.Dataset) error {
		d.Products = append(d.Products, products...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("products imported", zap.Int("count", len(products)))
	return products, nil
}

func (s *Store) normalizeProduct(p models.Product) (models.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	if err := s.check(p); err != nil {
		return p, err
	}
	category, ok := models.ParseCategory(string(p.Category))
	if !ok {
		return p, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, p.Category)
	}
	p.Category = category
	if p.Price.IsNegative() {
		return p, fmt.Errorf("%w: price %s is negative", ErrInvalidInput, p.Price)
	}
	p.Price = p.Price.Round(2)
	if p.Price.Equal(decimal.Zero) {
		s.logger.Warn("product without price", zap.String("name", p.Name))
	}
	return p, nil
}

func checkLease(rep models.Representative) error {
	if rep.LeaseStart != nil && rep.LeaseEnd != nil && rep.LeaseEnd.Before(*rep.LeaseStart) {
		return fmt.Errorf("%w: lease ends before it starts", ErrInvalidInput)
	}
	return nil
}
