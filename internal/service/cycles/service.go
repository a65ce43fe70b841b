package cycles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/commission"
	"github.com/mamadbah2/maleta/internal/domain/models"
)

var (
	// ErrCycleNotFound indicates the requested cycle does not exist.
	ErrCycleNotFound = errors.New("cycle not found")
	// ErrCycleAlreadyOpen indicates the representative already has an unsettled cycle.
	ErrCycleAlreadyOpen = errors.New("representative already has an open cycle")
	// ErrCycleSettled indicates the cycle was settled and accepts no more changes.
	ErrCycleSettled = errors.New("cycle already settled")
	// ErrIdempotencyKeyRequired indicates a close request without idempotency key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	// ErrDuplicateClose indicates the idempotency key is already being processed.
	ErrDuplicateClose = errors.New("cycle close already in progress")
	// ErrSellerMismatch indicates the seller does not own the cycle.
	ErrSellerMismatch = errors.New("seller does not own cycle")
)

// RankingRecorder accumulates settled totals per seller for the dashboard.
type RankingRecorder interface {
	RecordSettlement(ctx context.Context, organizationID, sellerID string, sales, commission decimal.Decimal) error
}

// IdempotencyGuard reserves close keys so concurrent retries cannot settle twice.
type IdempotencyGuard interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// SettlementExporter publishes a settlement to an external sheet.
type SettlementExporter interface {
	ExportSettlement(ctx context.Context, settlement models.Settlement, sellerName string) error
}

// CloseRequest is the input of a cycle close (acerto).
type CloseRequest struct {
	CycleID        string
	SellerID       string
	IdempotencyKey string
	SoldItems      []models.SoldItem
}

// Service implements the consignment cycle state machine:
// OPEN -> SETTLED, OPEN -> OVERDUE -> SETTLED.
type Service struct {
	policy         commission.Policy
	ranking        RankingRecorder
	guard          IdempotencyGuard
	exporter       SettlementExporter
	organizationID string
	logger         *zap.Logger
	now            func() time.Time
}

// NewService wires a cycle service. ranking and exporter may be nil.
func NewService(policy commission.Policy, organizationID string, ranking RankingRecorder, guard IdempotencyGuard, exporter SettlementExporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		policy:         policy,
		ranking:        ranking,
		guard:          guard,
		exporter:       exporter,
		organizationID: organizationID,
		logger:         logger,
		now:            time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Open starts a cycle for repID. The due date is always start + 60 days.
func (s *Service) Open(existing []models.ConsignmentCycle, repID string, start time.Time) (models.ConsignmentCycle, error) {
	if repID == "" {
		return models.ConsignmentCycle{}, errors.New("cycles: representative is required")
	}
	if _, ok := Current(existing, repID); ok {
		return models.ConsignmentCycle{}, ErrCycleAlreadyOpen
	}
	if start.IsZero() {
		start = s.now()
	}
	start = start.UTC()

	return models.ConsignmentCycle{
		ID:               uuid.NewString(),
		RepresentativeID: repID,
		StartDate:        start,
		DueDate:          start.Add(models.CycleLength),
		Status:           models.CycleOpen,
		MovementIDs:      []string{},
	}, nil
}

// Current returns the representative's unsettled cycle, if any.
func Current(cycles []models.ConsignmentCycle, repID string) (models.ConsignmentCycle, bool) {
	for _, c := range cycles {
		if c.RepresentativeID == repID && c.Accepting() {
			return c, true
		}
	}
	return models.ConsignmentCycle{}, false
}

// Attach records movementID on the representative's unsettled cycle. It
// reports false when there is none.
func Attach(cycles []models.ConsignmentCycle, repID, movementID string) bool {
	for i := range cycles {
		if cycles[i].RepresentativeID == repID && cycles[i].Accepting() {
			cycles[i].MovementIDs = append(cycles[i].MovementIDs, movementID)
			return true
		}
	}
	return false
}

// Find returns the index of cycleID.
func Find(cycles []models.ConsignmentCycle, cycleID string) (int, error) {
	for i, c := range cycles {
		if c.ID == cycleID {
			return i, nil
		}
	}
	return -1, ErrCycleNotFound
}

// Figures computes the settlement amounts for a sold-items snapshot. The
// tier rate is chosen by the total and applied to the whole amount.
func (s *Service) Figures(items []models.SoldItem) (total, percentage, commissionValue, net decimal.Decimal) {
	total = decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	res := s.policy.Apply(total)
	return total, res.Percentage, res.Value, total.Sub(res.Value)
}

// Settle validates and stamps a settlement on cycle. replayed is true when the
// same idempotency key already settled it; the stored cycle is then returned
// unchanged. On success the key stays reserved; callers must Release it if
// they fail to persist the result.
func (s *Service) Settle(ctx context.Context, cycle models.ConsignmentCycle, req CloseRequest) (settled models.ConsignmentCycle, replayed bool, err error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return cycle, false, ErrIdempotencyKeyRequired
	}
	if req.SellerID != "" && req.SellerID != cycle.RepresentativeID {
		return cycle, false, ErrSellerMismatch
	}

	if cycle.Status == models.CycleSettled {
		if cycle.Settlement != nil && cycle.Settlement.IdempotencyKey == key {
			return cycle, true, nil
		}
		return cycle, false, ErrCycleSettled
	}

	for _, item := range req.SoldItems {
		if item.Quantity < 0 || item.Price.IsNegative() {
			return cycle, false, fmt.Errorf("cycles: invalid sold item price=%s quantity=%d", item.Price, item.Quantity)
		}
	}

	if s.guard != nil {
		ok, err := s.guard.Reserve(ctx, closeKey(cycle.ID, key))
		if err != nil {
			return cycle, false, fmt.Errorf("cycles: reserve idempotency key: %w", err)
		}
		if !ok {
			return cycle, false, ErrDuplicateClose
		}
	}

	total, pct, value, net := s.Figures(req.SoldItems)

	settled = cycle
	settled.MovementIDs = append([]string(nil), cycle.MovementIDs...)
	settled.Status = models.CycleSettled
	settled.Settlement = &models.Settlement{
		CycleID:              cycle.ID,
		SellerID:             cycle.RepresentativeID,
		IdempotencyKey:       key,
		TotalSales:           total,
		CommissionPercentage: pct,
		CommissionValue:      value,
		NetProfit:            net,
		SettledAt:            s.now().UTC(),
	}

	s.logger.Info("cycle settled",
		zap.String("cycle_id", cycle.ID),
		zap.String("seller_id", cycle.RepresentativeID),
		zap.String("total_sales", total.StringFixed(2)),
		zap.String("commission_percentage", pct.String()))

	return settled, false, nil
}

// Abort releases the idempotency reservation of a settlement that could not
// be persisted.
func (s *Service) Abort(ctx context.Context, settlement models.Settlement) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, closeKey(settlement.CycleID, settlement.IdempotencyKey)); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.String("cycle_id", settlement.CycleID), zap.Error(err))
	}
}

// Publish pushes a persisted settlement to the ranking aggregate and the
// settlement sheet. Failures are logged, never returned: the settlement is
// already final.
func (s *Service) Publish(ctx context.Context, settlement models.Settlement, sellerName string) {
	if s.ranking != nil {
		if err := s.ranking.RecordSettlement(ctx, s.organizationID, settlement.SellerID, settlement.TotalSales, settlement.CommissionValue); err != nil {
			s.logger.Error("failed to record ranking", zap.String("cycle_id", settlement.CycleID), zap.Error(err))
		}
	}
	if s.exporter != nil {
		if err := s.exporter.ExportSettlement(ctx, settlement, sellerName); err != nil {
			s.logger.Error("failed to export settlement", zap.String("cycle_id", settlement.CycleID), zap.Error(err))
		}
	}
}

// MarkOverdue moves every OPEN cycle whose due date has passed to OVERDUE and
// returns the ids it changed.
func (s *Service) MarkOverdue(cycles []models.ConsignmentCycle, now time.Time) []string {
	changed := make([]string, 0)
	for i := range cycles {
		if cycles[i].Status == models.CycleOpen && now.After(cycles[i].DueDate) {
			cycles[i].Status = models.CycleOverdue
			changed = append(changed, cycles[i].ID)
		}
	}
	if len(changed) > 0 {
		s.logger.Info("cycles marked overdue", zap.Int("count", len(changed)))
	}
	return changed
}

// SoldItemsFromMovements builds the sold-items snapshot of cycle from the
// movements attached to it: SOLD movements at their transaction value and
// sold-value adjustments (imported sales included) as single-unit lines.
// Negative sold adjustments cannot be expressed as items, so when present the
// snapshot collapses into one line holding the net total, floored at zero.
func SoldItemsFromMovements(cycle models.ConsignmentCycle, movements []models.Movement) []models.SoldItem {
	attached := make(map[string]struct{}, len(cycle.MovementIDs))
	for _, id := range cycle.MovementIDs {
		attached[id] = struct{}{}
	}

	items := make([]models.SoldItem, 0)
	total, deduction := decimal.Zero, decimal.Zero
	for _, m := range movements {
		if _, ok := attached[m.ID]; !ok {
			continue
		}
		switch {
		case m.Type == models.MovementSold:
			items = append(items, models.SoldItem{Price: m.Value, Quantity: m.Quantity})
			total = total.Add(m.Amount())
		case m.Type == models.MovementAdjustment && m.AdjustmentTarget == models.AdjustSold:
			if m.Value.IsNegative() {
				deduction = deduction.Add(m.Value)
				continue
			}
			items = append(items, models.SoldItem{Price: m.Value, Quantity: 1})
			total = total.Add(m.Value)
		}
	}

	if deduction.IsZero() {
		return items
	}
	net := total.Add(deduction)
	if !net.IsPositive() {
		return []models.SoldItem{}
	}
	return []models.SoldItem{{Price: net, Quantity: 1}}
}

func closeKey(cycleID, key string) string {
	return "cycle-close:" + cycleID + ":" + key
}
