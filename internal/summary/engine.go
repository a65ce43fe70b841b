// Package summary derives per-representative financial summaries from the
// movement ledger. Everything here is a pure function of its inputs.
package summary

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/maleta/internal/commission"
	"github.com/mamadbah2/maleta/internal/domain/models"
)

// Compute returns one summary per representative, in the order given.
func Compute(reps []models.Representative, movements []models.Movement, policy commission.Policy) []models.MaletaSummary {
	byRep := make(map[string][]models.Movement, len(reps))
	for _, m := range movements {
		byRep[m.RepresentativeID] = append(byRep[m.RepresentativeID], m)
	}

	out := make([]models.MaletaSummary, 0, len(reps))
	for _, rep := range reps {
		out = append(out, ForRepresentative(rep, byRep[rep.ID], policy))
	}
	return out
}

// ForRepresentative summarizes movements for rep. Movements belonging to
// other representatives are ignored.
func ForRepresentative(rep models.Representative, movements []models.Movement, policy commission.Policy) models.MaletaSummary {
	var (
		delivered     = decimal.Zero
		sold          = decimal.Zero
		commissionAdj = decimal.Zero
		additional    = decimal.Zero
	)

	for _, m := range movements {
		if m.RepresentativeID != rep.ID {
			continue
		}
		switch m.Type {
		case models.MovementDelivered:
			delivered = delivered.Add(m.Amount())
		case models.MovementSold:
			sold = sold.Add(m.Amount())
		case models.MovementAdjustment:
			switch m.AdjustmentTarget {
			case models.AdjustSold:
				sold = sold.Add(m.Value)
			case models.AdjustCommission:
				commissionAdj = commissionAdj.Add(m.Value)
			case models.AdjustTotal:
				delivered = delivered.Add(m.Value)
			case models.AdjustAdditional:
				additional = additional.Add(m.Value)
			}
		}
	}

	res := policy.Apply(sold)
	commissionValue := res.Value.Add(commissionAdj)

	return models.MaletaSummary{
		RepresentativeID: rep.ID,
		Name:             rep.Name,
		TotalDelivered:   delivered,
		SoldValue:        sold,
		CommissionRate:   res.Rate,
		CommissionValue:  commissionValue,
		Additional:       additional,
		NetProfit:        sold.Sub(commissionValue).Add(additional),
		Status:           rep.MaletaStatus.Label(),
	}
}
