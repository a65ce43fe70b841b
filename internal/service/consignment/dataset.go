package consignment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/ledger"
)

// Import replaces the whole dataset, e.g. with a previous export. The
// payload is checked before anything is replaced; a bad payload leaves the
// current state untouched.
func (s *Store) Import(ctx context.Context, incoming models.Dataset) error {
	if err := checkDataset(incoming); err != nil {
		return err
	}

	err := s.mutate(ctx, func(d *models.Dataset) error {
		*d = incoming.Clone()
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("dataset imported",
		zap.Int("representatives", len(incoming.Representatives)),
		zap.Int("products", len(incoming.Products)),
		zap.Int("movements", len(incoming.Movements)))
	return nil
}

func checkDataset(d models.Dataset) error {
	seen := make(map[string]struct{})
	unique := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%w: %s without id", ErrInvalidInput, kind)
		}
		key := kind + ":" + id
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate %s id %s", ErrInvalidInput, kind, id)
		}
		seen[key] = struct{}{}
		return nil
	}

	for _, r := range d.Representatives {
		if err := unique("representative", r.ID); err != nil {
			return err
		}
	}
	for _, p := range d.Products {
		if err := unique("product", p.ID); err != nil {
			return err
		}
	}
	for _, m := range d.Movements {
		if err := unique("movement", m.ID); err != nil {
			return err
		}
		if _, err := ledger.Validate(m); err != nil {
			return fmt.Errorf("%w: movement %s: %w", ErrInvalidInput, m.ID, err)
		}
	}
	for _, c := range d.Cycles {
		if err := unique("cycle", c.ID); err != nil {
			return err
		}
	}
	return nil
}
