package models

import "github.com/shopspring/decimal"

// MaletaSummary is the derived per-representative financial view.
type MaletaSummary struct {
	RepresentativeID string          `json:"representativeId"`
	Name             string          `json:"name"`
	TotalDelivered   decimal.Decimal `json:"totalDelivered"`
	SoldValue        decimal.Decimal `json:"soldValue"`
	CommissionRate   decimal.Decimal `json:"commissionRate"`
	CommissionValue  decimal.Decimal `json:"commissionValue"`
	Additional       decimal.Decimal `json:"additional"`
	NetProfit        decimal.Decimal `json:"netProfit"`
	Status           string          `json:"status"`
}

// MaletaItem is one on-hand product row of a maleta.
type MaletaItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Value     decimal.Decimal `json:"value"`
}

// Maleta is the projected on-hand inventory of a representative, valued at
// current catalog prices.
type Maleta struct {
	RepresentativeID string          `json:"representativeId"`
	Items            []MaletaItem    `json:"items"`
	TotalQuantity    int             `json:"totalQuantity"`
	TotalValue       decimal.Decimal `json:"totalValue"`
	Oversold         []string        `json:"oversold,omitempty"`
}
