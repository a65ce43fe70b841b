package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

const dateLayout = "2006-01-02 15:04"

// SettlementRow is one line of the settlement sheet:
// date | cycle | seller id | seller | sales | commission % | net.
type SettlementRow struct {
	SettledAt            time.Time
	CycleID              string
	SellerID             string
	SellerName           string
	TotalSales           decimal.Decimal
	CommissionPercentage decimal.Decimal
	NetProfit            decimal.Decimal
}

// Commission is the amount kept by the seller.
func (r SettlementRow) Commission() decimal.Decimal {
	return r.TotalSales.Sub(r.NetProfit)
}

// SettlementSheet appends and reads settlement rows in one sheet range.
type SettlementSheet struct {
	store      ValueStore
	sheetRange string
	logger     *zap.Logger
}

// NewSettlementSheet binds the settlement sheet to sheetRange, e.g. "Acertos!A:G".
func NewSettlementSheet(store ValueStore, sheetRange string, logger *zap.Logger) *SettlementSheet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementSheet{store: store, sheetRange: sheetRange, logger: logger}
}

// ExportSettlement appends one row for settlement.
func (s *SettlementSheet) ExportSettlement(ctx context.Context, settlement models.Settlement, sellerName string) error {
	row := []interface{}{
		settlement.SettledAt.Format(dateLayout),
		settlement.CycleID,
		settlement.SellerID,
		sellerName,
		settlement.TotalSales.StringFixed(2),
		settlement.CommissionPercentage.StringFixed(0),
		settlement.NetProfit.StringFixed(2),
	}
	if err := s.store.AppendRows(ctx, s.sheetRange, [][]interface{}{row}); err != nil {
		return fmt.Errorf("export settlement %s: %w", settlement.CycleID, err)
	}
	return nil
}

// Settlements reads back every parseable row. A header row and malformed rows
// are skipped.
func (s *SettlementSheet) Settlements(ctx context.Context) ([]SettlementRow, error) {
	rows, err := s.store.ReadRange(ctx, s.sheetRange)
	if err != nil {
		return nil, err
	}

	out := make([]SettlementRow, 0, len(rows))
	for i, raw := range rows {
		row, ok := parseRow(raw)
		if !ok {
			if i > 0 {
				s.logger.Debug("skipping settlement row", zap.Int("row", i+1))
			}
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func parseRow(raw []interface{}) (SettlementRow, bool) {
	if len(raw) < 7 {
		return SettlementRow{}, false
	}
	cell := func(i int) string { return strings.TrimSpace(fmt.Sprint(raw[i])) }

	settledAt, ok := parseDate(cell(0))
	if !ok {
		return SettlementRow{}, false
	}
	sales, ok := parseAmount(cell(4))
	if !ok {
		return SettlementRow{}, false
	}
	pct, ok := parseAmount(cell(5))
	if !ok {
		return SettlementRow{}, false
	}
	net, ok := parseAmount(cell(6))
	if !ok {
		return SettlementRow{}, false
	}

	return SettlementRow{
		SettledAt:            settledAt,
		CycleID:              cell(1),
		SellerID:             cell(2),
		SellerName:           cell(3),
		TotalSales:           sales,
		CommissionPercentage: pct,
		NetProfit:            net,
	}, true
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range []string{dateLayout, "2006-01-02", "02/01/2006 15:04", "02/01/2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount accepts both "1234.50" and the sheet's localized "1.234,50".
func parseAmount(value string) (decimal.Decimal, bool) {
	value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "R$"))
	value = strings.TrimSuffix(value, "%")
	if strings.Contains(value, ",") {
		value = strings.ReplaceAll(value, ".", "")
		value = strings.ReplaceAll(value, ",", ".")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
