package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/repository/sheets"
)

const (
	dateLayout = "02/01/2006"
	reportDays = 7
	topSellers = 3
)

// SettlementSource reads the settlements exported so far.
type SettlementSource interface {
	Settlements(ctx context.Context) ([]sheets.SettlementRow, error)
}

// Service builds the periodic settlement reports sent to the owner.
type Service struct {
	source SettlementSource
	logger *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(source SettlementSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, logger: logger}
}

// Period aggregates the settlements closed between Start and End.
type Period struct {
	Start       time.Time
	End         time.Time
	Count       int
	TotalSales  decimal.Decimal
	Commission  decimal.Decimal
	NetProfit   decimal.Decimal
	SellerSales map[string]decimal.Decimal
}

// Aggregate sums the settlements closed in [start, end].
func (s *Service) Aggregate(ctx context.Context, start, end time.Time) (Period, error) {
	rows, err := s.source.Settlements(ctx)
	if err != nil {
		return Period{}, fmt.Errorf("load settlements: %w", err)
	}

	p := Period{
		Start:       start,
		End:         end,
		TotalSales:  decimal.Zero,
		Commission:  decimal.Zero,
		NetProfit:   decimal.Zero,
		SellerSales: make(map[string]decimal.Decimal),
	}
	for _, row := range rows {
		if row.SettledAt.Before(start) || row.SettledAt.After(end) {
			continue
		}
		p.Count++
		p.TotalSales = p.TotalSales.Add(row.TotalSales)
		p.Commission = p.Commission.Add(row.Commission())
		p.NetProfit = p.NetProfit.Add(row.NetProfit)

		name := row.SellerName
		if name == "" {
			name = row.SellerID
		}
		p.SellerSales[name] = p.SellerSales[name].Add(row.TotalSales)
	}

	s.logger.Debug("settlements aggregated", zap.Int("count", p.Count), zap.Time("start", start), zap.Time("end", end))
	return p, nil
}

// GenerateWeeklyReport summarizes the settlements of the seven days ending at now.
func (s *Service) GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error) {
	start := now.AddDate(0, 0, -reportDays)
	p, err := s.Aggregate(ctx, start, now)
	if err != nil {
		return "", err
	}
	return FormatPeriod(p), nil
}

// FormatPeriod renders p as a WhatsApp message.
func FormatPeriod(p Period) string {
	header := fmt.Sprintf("📊 Acertos %s a %s", p.Start.Format(dateLayout), p.End.Format(dateLayout))
	if p.Count == 0 {
		return header + "\nNenhum acerto no período."
	}

	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "\nAcertos: %d", p.Count)
	fmt.Fprintf(&b, "\nVendas: %s", models.FormatBRL(p.TotalSales))
	fmt.Fprintf(&b, "\nComissões: %s", models.FormatBRL(p.Commission))
	fmt.Fprintf(&b, "\nLucro líquido: %s", models.FormatBRL(p.NetProfit))

	names := make([]string, 0, len(p.SellerSales))
	for name := range p.SellerSales {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := p.SellerSales[names[i]], p.SellerSales[names[j]]
		if a.Equal(b) {
			return names[i] < names[j]
		}
		return a.GreaterThan(b)
	})
	if len(names) > topSellers {
		names = names[:topSellers]
	}
	b.WriteString("\nDestaques:")
	for i, name := range names {
		fmt.Fprintf(&b, "\n%d. %s - %s", i+1, name, models.FormatBRL(p.SellerSales[name]))
	}
	return b.String()
}
