package models

// Dataset is the whole persisted state. The JSON shape {reps, prods, movs}
// doubles as the export/import format.
type Dataset struct {
	Representatives []Representative   `json:"reps"`
	Products        []Product          `json:"prods"`
	Movements       []Movement         `json:"movs"`
	Cycles          []ConsignmentCycle `json:"cycles,omitempty"`
}

// Clone returns a copy whose slices can be mutated independently.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Representatives: append(make([]Representative, 0, len(d.Representatives)), d.Representatives...),
		Products:        append(make([]Product, 0, len(d.Products)), d.Products...),
		Movements:       append(make([]Movement, 0, len(d.Movements)), d.Movements...),
		Cycles:          make([]ConsignmentCycle, len(d.Cycles)),
	}
	for i, c := range d.Cycles {
		c.MovementIDs = append([]string(nil), c.MovementIDs...)
		if c.Settlement != nil {
			s := *c.Settlement
			c.Settlement = &s
		}
		out.Cycles[i] = c
	}
	return out
}
