package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CycleStatus captures the consignment cycle lifecycle.
type CycleStatus string

const (
	CycleOpen    CycleStatus = "OPEN"
	CycleSettled CycleStatus = "SETTLED"
	CycleOverdue CycleStatus = "OVERDUE"
)

// CycleLength is the fixed consignment window.
const CycleLength = 60 * 24 * time.Hour

// ConsignmentCycle is a time-boxed consignment period for one representative.
type ConsignmentCycle struct {
	ID               string      `json:"id"`
	RepresentativeID string      `json:"representativeId"`
	StartDate        time.Time   `json:"startDate"`
	DueDate          time.Time   `json:"dueDate"`
	Status           CycleStatus `json:"status"`
	MovementIDs      []string    `json:"movementIds"`
	Settlement       *Settlement `json:"settlement,omitempty"`
}

// Accepting reports whether the cycle still takes movements.
func (c ConsignmentCycle) Accepting() bool {
	return c.Status == CycleOpen || c.Status == CycleOverdue
}

// SoldItem is one line of the sold-items snapshot handed to a cycle close.
type SoldItem struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"gte=0"`
}

// Settlement is the result stamped on a cycle when it is closed (acerto).
type Settlement struct {
	CycleID              string          `json:"cycleId"`
	SellerID             string          `json:"sellerId"`
	IdempotencyKey       string          `json:"idempotencyKey"`
	TotalSales           decimal.Decimal `json:"totalSales"`
	CommissionPercentage decimal.Decimal `json:"commissionPercentage"`
	CommissionValue      decimal.Decimal `json:"commissionValue"`
	NetProfit            decimal.Decimal `json:"netProfit"`
	SettledAt            time.Time       `json:"settledAt"`
}
