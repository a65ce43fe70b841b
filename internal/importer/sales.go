// Package importer parses sales pasted as plain text (one sale per line).
package importer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

// SoldStatus is the status carried by every imported sale.
const SoldStatus = "Vendida"

// thousandsGrouped matches an integer written with dot thousand separators,
// as in "1.150" or "12.000.000".
var thousandsGrouped = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

var (
	// ErrEmptyBatch is returned when the pasted text holds no sale lines.
	ErrEmptyBatch = errors.New("import batch is empty")
	// ErrMissingRepresentative is returned when no representative was selected.
	ErrMissingRepresentative = errors.New("representative is required")
	// ErrInvalidLine wraps a line that could not be parsed.
	ErrInvalidLine = errors.New("invalid sale line")
)

// SaleRecord is one parsed sale line.
type SaleRecord struct {
	RepresentativeID string          `json:"representativeId"`
	Customer         string          `json:"customer"`
	Category         models.Category `json:"category"`
	Value            decimal.Decimal `json:"value"`
	Status           string          `json:"status"`
}

// ParseSales reads lines shaped "customer,category,value". The value may use
// a decimal comma, so "Maria,Brincos,150,00" is 150.00, and dot thousand
// separators, so "1.150,00" is 1150.00. Any bad line aborts
// the whole batch.
func ParseSales(text, representativeID string) ([]SaleRecord, error) {
	if strings.TrimSpace(representativeID) == "" {
		return nil, ErrMissingRepresentative
	}

	records := make([]SaleRecord, 0)
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		record, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidLine, i+1, err)
		}
		record.RepresentativeID = representativeID
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}
	return records, nil
}

func parseLine(line string) (SaleRecord, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 3 || len(parts) > 4 {
		return SaleRecord{}, fmt.Errorf("expected customer,category,value got %q", line)
	}

	customer := strings.TrimSpace(parts[0])
	if customer == "" {
		return SaleRecord{}, errors.New("customer is empty")
	}

	category, ok := models.ParseCategory(parts[1])
	if !ok {
		return SaleRecord{}, fmt.Errorf("unknown category %q", strings.TrimSpace(parts[1]))
	}

	raw := strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[2]), "R$")), "+")
	if thousandsGrouped.MatchString(raw) {
		raw = strings.ReplaceAll(raw, ".", "")
	}
	if len(parts) == 4 {
		raw += "." + strings.TrimSpace(parts[3])
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return SaleRecord{}, fmt.Errorf("value %q: %w", raw, err)
	}
	if !value.IsPositive() {
		return SaleRecord{}, fmt.Errorf("value %s must be positive", value)
	}

	return SaleRecord{
		Customer: customer,
		Category: category,
		Value:    value,
		Status:   SoldStatus,
	}, nil
}
