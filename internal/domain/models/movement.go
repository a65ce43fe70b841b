package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType enumerates ledger event kinds.
type MovementType string

const (
	MovementDelivered  MovementType = "DELIVERED"
	MovementSold       MovementType = "SOLD"
	MovementReturned   MovementType = "RETURNED"
	MovementRestocked  MovementType = "RESTOCKED"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementDelivered, MovementSold, MovementReturned, MovementRestocked, MovementAdjustment:
		return true
	}
	return false
}

// AdjustmentTarget names the derived bucket an adjustment applies to.
type AdjustmentTarget string

const (
	AdjustSold       AdjustmentTarget = "sold"
	AdjustCommission AdjustmentTarget = "commission"
	AdjustTotal      AdjustmentTarget = "total"
	AdjustAdditional AdjustmentTarget = "additional"
)

// Valid reports whether t is a known adjustment target.
func (t AdjustmentTarget) Valid() bool {
	switch t {
	case AdjustSold, AdjustCommission, AdjustTotal, AdjustAdditional:
		return true
	}
	return false
}

// ManualAdjustmentProductID is the product id carried by pure financial adjustments.
const ManualAdjustmentProductID = "manual-adj"

// Movement is an immutable ledger event. Corrections are new ADJUSTMENT
// movements carrying a signed Value.
type Movement struct {
	ID               string           `json:"id"`
	Timestamp        time.Time        `json:"timestamp"`
	RepresentativeID string           `json:"representativeId"`
	ProductID        string           `json:"productId"`
	Type             MovementType     `json:"type"`
	Quantity         int              `json:"quantity"`
	Value            decimal.Decimal  `json:"value"`
	AdjustmentTarget AdjustmentTarget `json:"adjustmentTarget,omitempty"`
	Image            string           `json:"image,omitempty"`
}

// Amount is value × quantity.
func (m Movement) Amount() decimal.Decimal {
	return m.Value.Mul(decimal.NewFromInt(int64(m.Quantity)))
}

// MovementFilter narrows ledger queries. Nil fields match everything.
type MovementFilter struct {
	RepresentativeID *string
	ProductID        *string
	Type             *MovementType
	From             *time.Time
	To               *time.Time
}

// Matches reports whether m satisfies every set field. The date range is
// inclusive on both ends.
func (f MovementFilter) Matches(m Movement) bool {
	if f.RepresentativeID != nil && m.RepresentativeID != *f.RepresentativeID {
		return false
	}
	if f.ProductID != nil && m.ProductID != *f.ProductID {
		return false
	}
	if f.Type != nil && m.Type != *f.Type {
		return false
	}
	if f.From != nil && m.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && m.Timestamp.After(*f.To) {
		return false
	}
	return true
}
