package cycles

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/maleta/internal/commission"
	"github.com/mamadbah2/maleta/internal/domain/models"
)

type memoryGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (g *memoryGuard) Reserve(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys == nil {
		g.keys = map[string]bool{}
	}
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

type rankingCall struct {
	org, seller       string
	sales, commission decimal.Decimal
}

type fakeRanking struct{ calls []rankingCall }

func (f *fakeRanking) RecordSettlement(_ context.Context, org, seller string, sales, commission decimal.Decimal) error {
	f.calls = append(f.calls, rankingCall{org, seller, sales, commission})
	return nil
}

var start = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func newTestService(guard IdempotencyGuard, ranking RankingRecorder) *Service {
	svc := NewService(commission.Default(), "org-1", ranking, guard, nil, nil)
	svc.WithNow(func() time.Time { return start.Add(48 * time.Hour) })
	return svc
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestOpenSetsSixtyDayDueDate(t *testing.T) {
	svc := newTestService(nil, nil)

	c, err := svc.Open(nil, "r1", start)
	require.NoError(t, err)
	assert.Equal(t, models.CycleOpen, c.Status)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), c.DueDate)

	_, err = svc.Open([]models.ConsignmentCycle{c}, "r1", start)
	assert.ErrorIs(t, err, ErrCycleAlreadyOpen)
}

func TestSettleBelowThreshold(t *testing.T) {
	svc := newTestService(&memoryGuard{}, nil)
	c, err := svc.Open(nil, "r1", start)
	require.NoError(t, err)

	settled, replayed, err := svc.Settle(context.Background(), c, CloseRequest{
		CycleID:        c.ID,
		SellerID:       "r1",
		IdempotencyKey: "k1",
		SoldItems: []models.SoldItem{
			{Price: dec("100"), Quantity: 10},
			{Price: dec("50"), Quantity: 20},
		},
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, models.CycleSettled, settled.Status)

	s := settled.Settlement
	require.NotNil(t, s)
	assert.True(t, s.TotalSales.Equal(dec("2000")))
	assert.True(t, s.CommissionPercentage.Equal(dec("30")))
	assert.True(t, s.CommissionValue.Equal(dec("600")))
	assert.True(t, s.NetProfit.Equal(dec("1400")))
}

func TestSettleAtThresholdBoundary(t *testing.T) {
	svc := newTestService(&memoryGuard{}, nil)
	c, err := svc.Open(nil, "r1", start)
	require.NoError(t, err)

	settled, _, err := svc.Settle(context.Background(), c, CloseRequest{
		IdempotencyKey: "k1",
		SoldItems:      []models.SoldItem{{Price: dec("2500.00"), Quantity: 2}},
	})
	require.NoError(t, err)

	s := settled.Settlement
	assert.True(t, s.TotalSales.Equal(dec("5000")))
	assert.True(t, s.CommissionPercentage.Equal(dec("40")))
	assert.True(t, s.CommissionValue.Equal(dec("2000")))
	assert.True(t, s.NetProfit.Equal(dec("3000")))
}

func TestSettleIdempotentReplay(t *testing.T) {
	guard := &memoryGuard{}
	svc := newTestService(guard, nil)
	c, err := svc.Open(nil, "r1", start)
	require.NoError(t, err)
	req := CloseRequest{IdempotencyKey: "k1", SoldItems: []models.SoldItem{{Price: dec("10"), Quantity: 1}}}

	settled, _, err := svc.Settle(context.Background(), c, req)
	require.NoError(t, err)

	again, replayed, err := svc.Settle(context.Background(), settled, req)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, settled, again)

	req.IdempotencyKey = "k2"
	_, _, err = svc.Settle(context.Background(), settled, req)
	assert.ErrorIs(t, err, ErrCycleSettled)
}

func TestSettleDuplicateInFlight(t *testing.T) {
	guard := &memoryGuard{}
	svc := newTestService(guard, nil)
	c, err := svc.Open(nil, "r1", start)
	require.NoError(t, err)
	req := CloseRequest{IdempotencyKey: "k1"}

	_, _, err = svc.Settle(context.Background(), c, req)
	require.NoError(t, err)

	// the first result was never persisted, c is still OPEN
	_, _, err = svc.Settle(context.Background(), c, req)
	assert.ErrorIs(t, err, ErrDuplicateClose)

	settled, _, _ := svc.Settle(context.Background(), c, CloseRequest{IdempotencyKey: "other"})
	svc.Abort(context.Background(), *settled.Settlement)
	_, _, err = svc.Settle(context.Background(), c, CloseRequest{IdempotencyKey: "other"})
	assert.NoError(t, err)
}

func TestSettleValidation(t *testing.T) {
	svc := newTestService(nil, nil)
	c, err := svc.Open(nil, "r1", start)
	require.NoError(t, err)

	_, _, err = svc.Settle(context.Background(), c, CloseRequest{})
	assert.ErrorIs(t, err, ErrIdempotencyKeyRequired)

	_, _, err = svc.Settle(context.Background(), c, CloseRequest{IdempotencyKey: "k", SellerID: "r2"})
	assert.ErrorIs(t, err, ErrSellerMismatch)
}

func TestPublishRecordsRanking(t *testing.T) {
	ranking := &fakeRanking{}
	svc := newTestService(nil, ranking)

	svc.Publish(context.Background(), models.Settlement{
		SellerID:        "r1",
		TotalSales:      dec("2000"),
		CommissionValue: dec("600"),
	}, "Ana")

	require.Len(t, ranking.calls, 1)
	assert.Equal(t, "org-1", ranking.calls[0].org)
	assert.Equal(t, "r1", ranking.calls[0].seller)
	assert.True(t, ranking.calls[0].commission.Equal(dec("600")))
}

func TestMarkOverdueAndAttach(t *testing.T) {
	svc := newTestService(nil, nil)
	open, err := svc.Open(nil, "r1", start)
	require.NoError(t, err)
	settled := models.ConsignmentCycle{ID: "old", RepresentativeID: "r2", Status: models.CycleSettled, DueDate: start}
	all := []models.ConsignmentCycle{open, settled}

	assert.Empty(t, svc.MarkOverdue(all, start.Add(59*24*time.Hour)))
	assert.Equal(t, []string{open.ID}, svc.MarkOverdue(all, start.Add(61*24*time.Hour)))
	assert.Equal(t, models.CycleOverdue, all[0].Status)
	assert.Equal(t, models.CycleSettled, all[1].Status)

	assert.True(t, Attach(all, "r1", "m1"))
	assert.False(t, Attach(all, "r2", "m2"))
	assert.Equal(t, []string{"m1"}, all[0].MovementIDs)
}

func TestSoldItemsFromMovements(t *testing.T) {
	cycle := models.ConsignmentCycle{MovementIDs: []string{"m1", "m2", "m3"}}
	movs := []models.Movement{
		{ID: "m1", Type: models.MovementSold, Quantity: 2, Value: dec("40")},
		{ID: "m2", Type: models.MovementDelivered, Quantity: 5, Value: dec("40")},
		{ID: "m4", Type: models.MovementSold, Quantity: 9, Value: dec("40")},
		{ID: "m3", Type: models.MovementSold, Quantity: 1, Value: dec("15")},
	}

	items := SoldItemsFromMovements(cycle, movs)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[1].Price.Equal(dec("15")))
}

func TestSoldItemsFromMovementsIncludesSoldAdjustments(t *testing.T) {
	cycle := models.ConsignmentCycle{MovementIDs: []string{"m1", "a1", "a2", "a3"}}
	movs := []models.Movement{
		{ID: "m1", Type: models.MovementSold, Quantity: 2, Value: dec("40")},
		{ID: "a1", Type: models.MovementAdjustment, AdjustmentTarget: models.AdjustSold, Quantity: 1, Value: dec("150")},
		{ID: "a2", Type: models.MovementAdjustment, AdjustmentTarget: models.AdjustCommission, Quantity: 1, Value: dec("99")},
		{ID: "a3", Type: models.MovementAdjustment, AdjustmentTarget: models.AdjustSold, Quantity: 1, Value: dec("89.90")},
	}

	items := SoldItemsFromMovements(cycle, movs)
	require.Len(t, items, 3)
	assert.Equal(t, models.SoldItem{Price: dec("150"), Quantity: 1}, items[1])

	total, _, _, _ := newTestService(nil, nil).Figures(items)
	assert.True(t, total.Equal(dec("319.90")))
}

func TestSoldItemsFromMovementsNetsNegativeAdjustments(t *testing.T) {
	cycle := models.ConsignmentCycle{MovementIDs: []string{"m1", "a1"}}
	movs := []models.Movement{
		{ID: "m1", Type: models.MovementSold, Quantity: 2, Value: dec("40")},
		{ID: "a1", Type: models.MovementAdjustment, AdjustmentTarget: models.AdjustSold, Quantity: 1, Value: dec("-30")},
	}
	items := SoldItemsFromMovements(cycle, movs)
	require.Len(t, items, 1)
	assert.True(t, items[0].Price.Equal(dec("50")))
	assert.Equal(t, 1, items[0].Quantity)

	movs[1].Value = dec("-500")
	assert.Empty(t, SoldItemsFromMovements(cycle, movs))
}
