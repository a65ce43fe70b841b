// Package commission maps a representative's sold total to a commission rate.
package commission

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Policy is a two-tier step function: BaseRate below Threshold, PremiumRate
// at or above it. The tier rate applies to the whole amount, not marginally.
type Policy struct {
	Threshold   decimal.Decimal
	BaseRate    decimal.Decimal
	PremiumRate decimal.Decimal
}

// Default is the canonical policy: 30% below R$ 5000,00, 40% from there on.
func Default() Policy {
	return Policy{
		Threshold:   decimal.NewFromInt(5000),
		BaseRate:    decimal.RequireFromString("0.30"),
		PremiumRate: decimal.RequireFromString("0.40"),
	}
}

// Rate returns the tier rate for total.
func (p Policy) Rate(total decimal.Decimal) decimal.Decimal {
	if total.GreaterThanOrEqual(p.Threshold) {
		return p.PremiumRate
	}
	return p.BaseRate
}

// Result is a rate applied to a total.
type Result struct {
	Rate       decimal.Decimal
	Percentage decimal.Decimal
	Value      decimal.Decimal
}

// Apply computes the commission owed on total.
func (p Policy) Apply(total decimal.Decimal) Result {
	rate := p.Rate(total)
	return Result{
		Rate:       rate,
		Percentage: rate.Mul(hundred),
		Value:      total.Mul(rate),
	}
}
