// Package memory holds process-local implementations of the storage
// interfaces, used when MongoDB or Redis are not configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

// DatasetRepository keeps the dataset blob in memory.
type DatasetRepository struct {
	mu   sync.Mutex
	data models.Dataset
}

// NewDatasetRepository starts from seed, which may be empty.
func NewDatasetRepository(seed models.Dataset) *DatasetRepository {
	return &DatasetRepository{data: seed.Clone()}
}

// Load returns a copy of the stored dataset.
func (r *DatasetRepository) Load(_ context.Context) (models.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.Clone(), nil
}

// Save replaces the stored dataset.
func (r *DatasetRepository) Save(_ context.Context, dataset models.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = dataset.Clone()
	return nil
}

// IdempotencyGuard reserves keys until they expire or are released.
type IdempotencyGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	keys map[string]time.Time
}

// NewIdempotencyGuard returns a guard whose reservations last ttl.
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{ttl: ttl, now: time.Now, keys: make(map[string]time.Time)}
}

// Reserve reports false when key is already held. Expired reservations are
// dropped on the way.
func (g *IdempotencyGuard) Reserve(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for k, expires := range g.keys {
		if !now.Before(expires) {
			delete(g.keys, k)
		}
	}
	if expires, ok := g.keys[key]; ok && now.Before(expires) {
		return false, nil
	}
	g.keys[key] = now.Add(g.ttl)
	return true, nil
}

// Release frees key.
func (g *IdempotencyGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

// RankingRepository accumulates settlement totals per seller.
type RankingRepository struct {
	mu      sync.Mutex
	entries map[string]*models.RankingEntry
}

// NewRankingRepository returns an empty ranking.
func NewRankingRepository() *RankingRepository {
	return &RankingRepository{entries: make(map[string]*models.RankingEntry)}
}

// RecordSettlement adds one settlement to the seller's totals.
func (r *RankingRepository) RecordSettlement(_ context.Context, organizationID, sellerID string, sales, commission decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := organizationID + "/" + sellerID
	e, ok := r.entries[key]
	if !ok {
		e = &models.RankingEntry{OrganizationID: organizationID, SellerID: sellerID}
		r.entries[key] = e
	}
	e.TotalSales = e.TotalSales.Add(sales)
	e.TotalCommission = e.TotalCommission.Add(commission)
	e.Settlements++
	return nil
}

// Ranking lists the organization's sellers ordered by total sales.
func (r *RankingRepository) Ranking(_ context.Context, organizationID string) ([]models.RankingEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RankingEntry, 0)
	for _, e := range r.entries {
		if e.OrganizationID == organizationID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalSales.Cmp(out[j].TotalSales); c != 0 {
			return c > 0
		}
		return out[i].SellerID < out[j].SellerID
	})
	return out, nil
}
