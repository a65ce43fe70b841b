package consignment

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/service/cycles"
)

// OpenCycle starts a 60-day consignment cycle for repID. A zero start means now.
func (s *Store) OpenCycle(ctx context.Context, repID string, start time.Time) (models.ConsignmentCycle, error) {
	if start.IsZero() {
		start = s.now()
	}

	var opened models.ConsignmentCycle
	err := s.mutate(ctx, func(d *models.Dataset) error {
		if _, err := findRepresentative(d, repID); err != nil {
			return err
		}
		c, err := s.cycles.Open(d.Cycles, repID, start)
		if err != nil {
			return err
		}
		d.Cycles = append(d.Cycles, c)
		opened = c
		return nil
	})
	return opened, err
}

// CloseCycle settles a cycle from the sold-items snapshot in req. When
// req.CycleID is empty the seller's unsettled cycle is used. Retrying with
// the same idempotency key returns the original settlement without
// reporting it twice.
func (s *Store) CloseCycle(ctx context.Context, req cycles.CloseRequest) (models.Settlement, error) {
	return s.closeCycle(ctx, req, false)
}

// SettleFromLedger settles a cycle using the SOLD movements recorded on it.
func (s *Store) SettleFromLedger(ctx context.Context, req cycles.CloseRequest) (models.Settlement, error) {
	return s.closeCycle(ctx, req, true)
}

func (s *Store) closeCycle(ctx context.Context, req cycles.CloseRequest, fromLedger bool) (models.Settlement, error) {
	var (
		settled  models.ConsignmentCycle
		replayed bool
		seller   string
	)

	err := s.mutate(ctx, func(d *models.Dataset) error {
		idx, err := s.resolveCycle(d, req)
		if err != nil {
			return err
		}
		cycle := d.Cycles[idx]

		if ri, err := findRepresentative(d, cycle.RepresentativeID); err == nil {
			seller = d.Representatives[ri].Name
		}
		if fromLedger {
			req.SoldItems = cycles.SoldItemsFromMovements(cycle, d.Movements)
		}

		settled, replayed, err = s.cycles.Settle(ctx, cycle, req)
		if err != nil {
			return err
		}
		if replayed {
			return errNoChange
		}
		d.Cycles[idx] = settled
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCommitFailed) && settled.Settlement != nil {
			s.cycles.Abort(ctx, *settled.Settlement)
		}
		return models.Settlement{}, err
	}

	if replayed {
		s.logger.Info("cycle close replayed", zap.String("cycle_id", settled.ID))
		return *settled.Settlement, nil
	}

	s.cycles.Publish(ctx, *settled.Settlement, seller)
	return *settled.Settlement, nil
}

func (s *Store) resolveCycle(d *models.Dataset, req cycles.CloseRequest) (int, error) {
	if req.CycleID != "" {
		return cycles.Find(d.Cycles, req.CycleID)
	}
	if req.SellerID == "" {
		return -1, cycles.ErrCycleNotFound
	}
	if current, ok := cycles.Current(d.Cycles, req.SellerID); ok {
		return cycles.Find(d.Cycles, current.ID)
	}
	// A retry may arrive after the seller's cycle was already settled.
	key := strings.TrimSpace(req.IdempotencyKey)
	for i, c := range d.Cycles {
		if c.RepresentativeID == req.SellerID && c.Settlement != nil && key != "" && c.Settlement.IdempotencyKey == key {
			return i, nil
		}
	}
	return -1, cycles.ErrCycleNotFound
}

// MarkOverdue flags every open cycle past its due date.
func (s *Store) MarkOverdue(ctx context.Context) ([]string, error) {
	var changed []string
	err := s.mutate(ctx, func(d *models.Dataset) error {
		changed = s.cycles.MarkOverdue(d.Cycles, s.now())
		if len(changed) == 0 {
			return errNoChange
		}
		return nil
	})
	return changed, err
}
