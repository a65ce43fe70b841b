// Package consignment is the application state of the business: the
// representatives, the product catalog, the movement ledger and the
// consignment cycles. Every mutation goes through Store, which persists the
// whole dataset in one commit.
package consignment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/commission"
	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/inventory"
	"github.com/mamadbah2/maleta/internal/ledger"
	"github.com/mamadbah2/maleta/internal/service/cycles"
	"github.com/mamadbah2/maleta/internal/summary"
	whatsappclient "github.com/mamadbah2/maleta/pkg/clients/whatsapp"
)

var (
	// ErrInvalidInput wraps every validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRepresentativeNotFound indicates an unknown representative id.
	ErrRepresentativeNotFound = errors.New("representative not found")
	// ErrProductNotFound indicates an unknown product id.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock indicates central stock cannot cover a delivery.
	ErrInsufficientStock = errors.New("insufficient central stock")
	// ErrInsufficientMaleta indicates a return larger than what the
	// representative holds.
	ErrInsufficientMaleta = errors.New("return exceeds maleta balance")
	// ErrEmptyBatch indicates an import without records.
	ErrEmptyBatch = errors.New("empty import batch")
	// ErrCommitFailed indicates the dataset could not be persisted; the
	// in-memory state was left untouched.
	ErrCommitFailed = errors.New("failed to commit dataset")
)

// errNoChange aborts a mutation without error and without committing.
var errNoChange = errors.New("no change")

// DatasetStore persists the whole dataset as a single blob.
type DatasetStore interface {
	Load(ctx context.Context) (models.Dataset, error)
	Save(ctx context.Context, dataset models.Dataset) error
}

// Store serializes every read and write of the dataset behind one lock.
type Store struct {
	mu       sync.RWMutex
	data     models.Dataset
	repo     DatasetStore
	cycles   *cycles.Service
	policy   commission.Policy
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewStore loads the persisted dataset and returns a ready store.
func NewStore(ctx context.Context, repo DatasetStore, cycleSvc *cycles.Service, policy commission.Policy, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	data, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	logger.Info("dataset loaded",
		zap.Int("representatives", len(data.Representatives)),
		zap.Int("products", len(data.Products)),
		zap.Int("movements", len(data.Movements)),
		zap.Int("cycles", len(data.Cycles)))

	return &Store{
		data:     data.Clone(),
		repo:     repo,
		cycles:   cycleSvc,
		policy:   policy,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// WithNow overrides the clock for deterministic tests.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithIDs overrides the id generator for deterministic tests.
func (s *Store) WithIDs(newID func() string) {
	if newID != nil {
		s.newID = newID
	}
}

// mutate runs fn on a copy of the dataset and commits the copy. The live
// state only changes after the save succeeded.
func (s *Store) mutate(ctx context.Context, fn func(d *models.Dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	if err := fn(&next); err != nil {
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}

	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error("dataset commit failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}

	s.data = next
	return nil
}

func (s *Store) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// appendMovement records m on the ledger of d and attaches it to the
// representative's unsettled cycle.
func (s *Store) appendMovement(d *models.Dataset, m models.Movement) (models.Movement, error) {
	l := ledger.New(d.Movements).WithClock(s.now).WithIDs(s.newID)
	appended, err := l.Append(m)
	if err != nil {
		return models.Movement{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	d.Movements = l.All()
	cycles.Attach(d.Cycles, appended.RepresentativeID, appended.ID)
	return appended, nil
}

func findRepresentative(d *models.Dataset, id string) (int, error) {
	for i, r := range d.Representatives {
		if r.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrRepresentativeNotFound, id)
}

func findProduct(d *models.Dataset, id string) (int, error) {
	for i, p := range d.Products {
		if p.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrProductNotFound, id)
}

// Representatives lists every representative, active or not.
func (s *Store) Representatives() []models.Representative {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Representative(nil), s.data.Representatives...)
}

// Representative returns one representative.
func (s *Store) Representative(id string) (models.Representative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, err := findRepresentative(&s.data, id)
	if err != nil {
		return models.Representative{}, err
	}
	return s.data.Representatives[i], nil
}

// RepresentativeByPhone matches the phone digits, ignoring formatting.
func (s *Store) RepresentativeByPhone(phone string) (models.Representative, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := whatsappclient.NormalizePhone(phone)
	if want == "" {
		return models.Representative{}, false
	}
	for _, r := range s.data.Representatives {
		if whatsappclient.NormalizePhone(r.Phone) == want {
			return r, true
		}
	}
	return models.Representative{}, false
}

// Products lists the catalog.
func (s *Store) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Product(nil), s.data.Products...)
}

// Movements queries the ledger.
func (s *Store) Movements(filter models.MovementFilter) []models.Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.New(s.data.Movements).Query(filter)
}

// Summaries recomputes every representative summary from scratch.
func (s *Store) Summaries() []models.MaletaSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return summary.Compute(s.data.Representatives, s.data.Movements, s.policy)
}

// Summary recomputes the summary of one representative.
func (s *Store) Summary(repID string) (models.MaletaSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, err := findRepresentative(&s.data, repID)
	if err != nil {
		return models.MaletaSummary{}, err
	}
	return summary.ForRepresentative(s.data.Representatives[i], s.data.Movements, s.policy), nil
}

// Maleta projects the on-hand inventory of a representative.
func (s *Store) Maleta(repID string) (models.Maleta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := findRepresentative(&s.data, repID); err != nil {
		return models.Maleta{}, err
	}
	return inventory.Project(repID, s.data.Movements, models.NewCatalog(s.data.Products)), nil
}

// Cycles lists the cycles of repID, or all cycles when repID is empty.
func (s *Store) Cycles(repID string) []models.ConsignmentCycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ConsignmentCycle, 0)
	for _, c := range s.data.Clone().Cycles {
		if repID == "" || c.RepresentativeID == repID {
			out = append(out, c)
		}
	}
	return out
}

// Export returns a copy of the whole dataset.
func (s *Store) Export() models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}
