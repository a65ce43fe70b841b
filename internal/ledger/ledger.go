// Package ledger holds the append-only movement log that every summary,
// maleta projection and settlement is derived from.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

// ErrInvalidMovement is returned for movements rejected by validation.
var ErrInvalidMovement = errors.New("invalid movement")

// Ledger is an in-memory append-only movement log. It is not safe for
// concurrent use; the owning store serializes access.
type Ledger struct {
	movements []models.Movement
	now       func() time.Time
	newID     func() string
}

// New wraps an existing history, e.g. one restored from storage.
func New(history []models.Movement) *Ledger {
	return &Ledger{
		movements: append([]models.Movement(nil), history...),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithClock overrides the timestamp source for deterministic tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	if now != nil {
		l.now = now
	}
	return l
}

// WithIDs overrides the id generator.
func (l *Ledger) WithIDs(newID func() string) *Ledger {
	if newID != nil {
		l.newID = newID
	}
	return l
}

// Append validates m, stamps it with a fresh id and the current time and
// adds it to the log. Caller-supplied id and timestamp are ignored.
func (l *Ledger) Append(m models.Movement) (models.Movement, error) {
	normalized, err := Validate(m)
	if err != nil {
		return models.Movement{}, err
	}
	normalized.ID = l.newID()
	normalized.Timestamp = l.now().UTC()
	l.movements = append(l.movements, normalized)
	return normalized, nil
}

// Query returns the movements matching filter in insertion order. The
// returned slice is a copy.
func (l *Ledger) Query(filter models.MovementFilter) []models.Movement {
	out := make([]models.Movement, 0)
	for _, m := range l.movements {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	return out
}

// All returns a copy of the whole history.
func (l *Ledger) All() []models.Movement {
	return append([]models.Movement(nil), l.movements...)
}

// Len is the number of recorded movements.
func (l *Ledger) Len() int { return len(l.movements) }

// Validate checks m against the ledger rules and returns the normalized
// movement. Adjustments always carry quantity 1 and default to the
// manual-adj product.
func Validate(m models.Movement) (models.Movement, error) {
	if m.RepresentativeID == "" {
		return m, fmt.Errorf("%w: representative is required", ErrInvalidMovement)
	}
	if !m.Type.Valid() {
		return m, fmt.Errorf("%w: unknown type %q", ErrInvalidMovement, m.Type)
	}

	if m.Type == models.MovementAdjustment {
		if !m.AdjustmentTarget.Valid() {
			return m, fmt.Errorf("%w: adjustment target %q", ErrInvalidMovement, m.AdjustmentTarget)
		}
		if m.Value.IsZero() {
			return m, fmt.Errorf("%w: adjustment value must not be zero", ErrInvalidMovement)
		}
		if m.ProductID == "" {
			m.ProductID = models.ManualAdjustmentProductID
		}
		m.Quantity = 1
		return m, nil
	}

	if m.ProductID == "" {
		return m, fmt.Errorf("%w: product is required", ErrInvalidMovement)
	}
	if m.Quantity < 0 {
		return m, fmt.Errorf("%w: quantity %d is negative", ErrInvalidMovement, m.Quantity)
	}
	if m.Value.IsNegative() {
		return m, fmt.Errorf("%w: value %s is negative", ErrInvalidMovement, m.Value)
	}
	m.AdjustmentTarget = ""
	return m, nil
}
