package models

import "github.com/shopspring/decimal"

// RankingEntry is the running settlement total of one seller.
type RankingEntry struct {
	OrganizationID  string          `json:"organizationId"`
	SellerID        string          `json:"sellerId"`
	TotalSales      decimal.Decimal `json:"totalSales"`
	TotalCommission decimal.Decimal `json:"totalCommission"`
	Settlements     int             `json:"settlements"`
}
