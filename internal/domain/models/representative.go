package models

import "time"

// MaletaStatus tells whether a representative currently carries her maleta.
type MaletaStatus string

const (
	MaletaInField MaletaStatus = "IN_FIELD"
	MaletaAtBase  MaletaStatus = "AT_BASE"
)

// Label returns the display text used in summaries and WhatsApp messages.
func (s MaletaStatus) Label() string {
	switch s {
	case MaletaInField:
		return "Em Campo"
	case MaletaAtBase:
		return "Na Base"
	default:
		return string(s)
	}
}

// Valid reports whether s is a known status.
func (s MaletaStatus) Valid() bool {
	return s == MaletaInField || s == MaletaAtBase
}

// Representative is a consignee (vendedora) who carries and sells inventory on commission.
type Representative struct {
	ID           string       `json:"id"`
	Name         string       `json:"name" validate:"required"`
	Phone        string       `json:"phone"`
	City         string       `json:"city"`
	Active       bool         `json:"active"`
	LeaseStart   *time.Time   `json:"leaseStart,omitempty"`
	LeaseEnd     *time.Time   `json:"leaseEnd,omitempty"`
	MaletaStatus MaletaStatus `json:"maletaStatus"`
}
