package reporting

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/chapaquote/internal/domain/models"
)

// QuoteSource is the read side of the quote store the reports reduce over.
type QuoteSource interface {
	ScanAll(ctx context.Context) ([]models.Quote, error)
}

// Service exposes aggregate figures over every stored quote.
type Service struct {
	repo   QuoteSource
	logger *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(repository QuoteSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repository, logger: logger}
}

// Summary totals revenue across all quotes. Average is zero when there are
// none. Quotes with a non-finite stored total are left out.
func (s *Service) Summary(ctx context.Context) (models.Summary, error) {
	quotes, err := s.repo.ScanAll(ctx)
	if err != nil {
		return models.Summary{}, fmt.Errorf("load quotes: %w", err)
	}

	total := decimal.Zero
	count := 0
	for _, q := range quotes {
		amount, ok := s.amount(q)
		if !ok {
			continue
		}
		total = total.Add(amount)
		count++
	}

	summary := models.Summary{
		TotalRevenue: total.InexactFloat64(),
		Count:        count,
	}
	if count > 0 {
		summary.Average = total.Div(decimal.NewFromInt(int64(count))).InexactFloat64()
	}
	return summary, nil
}

// MonthlyRevenue breaks down a year's revenue by month, January first. Quotes
// whose stored date does not parse are skipped.
func (s *Service) MonthlyRevenue(ctx context.Context, year int) ([]models.MonthlyRevenue, error) {
	quotes, err := s.repo.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load quotes: %w", err)
	}

	var revenue [12]decimal.Decimal
	var counts [12]int
	for _, q := range quotes {
		date, err := q.ParsedDate()
		if err != nil {
			s.logger.Debug("skip quote with invalid date", zap.Int32("client_number", q.ClientNumber), zap.String("date", q.Date.String()), zap.Error(err))
			continue
		}
		if date.Year() != year {
			continue
		}
		amount, ok := s.amount(q)
		if !ok {
			continue
		}
		m := int(date.Month()) - 1
		revenue[m] = revenue[m].Add(amount)
		counts[m]++
	}

	out := make([]models.MonthlyRevenue, 12)
	for i := range out {
		out[i] = models.MonthlyRevenue{
			Month:   i + 1,
			Year:    year,
			Count:   counts[i],
			Revenue: revenue[i].InexactFloat64(),
		}
	}
	return out, nil
}

// amount converts the stored total, rejecting NaN and infinities that a file
// written by another tool may hold.
func (s *Service) amount(q models.Quote) (decimal.Decimal, bool) {
	if math.IsNaN(q.TotalPrice) || math.IsInf(q.TotalPrice, 0) {
		s.logger.Debug("skip quote with non-finite total", zap.Int32("client_number", q.ClientNumber), zap.Float64("total", q.TotalPrice))
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(q.TotalPrice), true
}
