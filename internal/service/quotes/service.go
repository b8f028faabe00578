package quotes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/chapaquote/internal/codec"
	"github.com/mamadbah2/chapaquote/internal/domain/models"
	repo "github.com/mamadbah2/chapaquote/internal/repository/quotefile"
	"github.com/mamadbah2/chapaquote/internal/service/pricing"
	"github.com/mamadbah2/chapaquote/internal/service/stock"
	"github.com/mamadbah2/chapaquote/pkg/apperrors"
)

var datePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// Input is what a caller supplies to create or modify a quote. The total
// price is never part of it.
type Input struct {
	ClientName    string
	ClientNumber  int
	Date          string
	Product       string
	Material      string
	Thickness     float64
	Width         float64
	Height        float64
	SheetPrice    float64
	LaborCost     float64
	MarginPercent float64
}

// CreateResult is the payload of a successful create.
type CreateResult struct {
	Total  float64
	Sheets int
}

// YearRange bounds the year a quote may be dated in, inclusive.
type YearRange struct {
	Min int
	Max int
}

// Ledger is the stock behaviour the service relies on.
type Ledger interface {
	Reserve(ctx context.Context, material string, thickness float64, count int) error
	Release(ctx context.Context, material string, thickness float64, count int) error
	Edit(ctx context.Context, row int, thickness float64, quantity int) error
	EditMany(ctx context.Context, edits []stock.Edit) error
	Entries() []models.StockEntry
}

// Reporter produces aggregate figures.
type Reporter interface {
	Summary(ctx context.Context) (models.Summary, error)
	MonthlyRevenue(ctx context.Context, year int) ([]models.MonthlyRevenue, error)
}

// Service is the single entry point for quote operations.
type Service struct {
	mu        sync.Mutex
	repo      repo.Repository
	ledger    Ledger
	pricing   pricing.Engine
	reporting Reporter
	years     YearRange
	logger    *zap.Logger
}

// NewService wires the quote service.
func NewService(repository repo.Repository, ledger Ledger, engine pricing.Engine, reporting Reporter, years YearRange, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repository,
		ledger:    ledger,
		pricing:   engine,
		reporting: reporting,
		years:     years,
		logger:    logger,
	}
}

// Create validates in, reserves the sheets it needs and stores the quote.
// On failure neither the quote file nor the stock changes.
func (s *Service) Create(ctx context.Context, in Input) (CreateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.build(in)
	if err != nil {
		return CreateResult{}, err
	}

	existing, err := s.repo.FindByClientNumber(ctx, q.ClientNumber)
	if err != nil {
		return CreateResult{}, fmt.Errorf("check client number: %w", err)
	}
	if len(existing) > 0 {
		return CreateResult{}, fmt.Errorf("%w: %d", apperrors.ErrDuplicateClient, q.ClientNumber)
	}

	priced, err := s.price(&q)
	if err != nil {
		return CreateResult{}, err
	}

	material := q.Material.String()
	if err := s.ledger.Reserve(ctx, material, q.Thickness, priced.Sheets); err != nil {
		return CreateResult{}, err
	}

	if err := s.repo.Append(ctx, q); err != nil {
		if relErr := s.ledger.Release(context.WithoutCancel(ctx), material, q.Thickness, priced.Sheets); relErr != nil {
			s.logger.Error("failed to release reserved stock",
				zap.Int32("client_number", q.ClientNumber),
				zap.String("material", material),
				zap.Int("sheets", priced.Sheets),
				zap.Error(relErr))
			return CreateResult{}, errors.Join(fmt.Errorf("store quote: %w", err), relErr)
		}
		return CreateResult{}, fmt.Errorf("store quote: %w", err)
	}

	s.logger.Info("quote created",
		zap.Int32("client_number", q.ClientNumber),
		zap.String("material", material),
		zap.Int("sheets", priced.Sheets),
		zap.Float64("total", q.TotalPrice))

	return CreateResult{Total: q.TotalPrice, Sheets: priced.Sheets}, nil
}

// Modify replaces the quote stored under clientNumber with in, recomputing
// the price. Stock is not adjusted.
func (s *Service) Modify(ctx context.Context, clientNumber int, in Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.build(in)
	if err != nil {
		return err
	}

	quotes, err := s.repo.ScanAll(ctx)
	if err != nil {
		return err
	}

	found := false
	for _, existing := range quotes {
		switch {
		case int(existing.ClientNumber) == clientNumber:
			found = true
		case existing.ClientNumber == q.ClientNumber:
			return fmt.Errorf("%w: %d", apperrors.ErrDuplicateClient, q.ClientNumber)
		}
	}
	if !found {
		return fmt.Errorf("%w: client number %d", apperrors.ErrQuoteNotFound, clientNumber)
	}

	priced, err := s.price(&q)
	if err != nil {
		return err
	}

	err = s.repo.Rewrite(ctx, func(existing models.Quote) (models.Quote, bool) {
		if int(existing.ClientNumber) == clientNumber {
			return q, true
		}
		return existing, true
	})
	if err != nil {
		return err
	}

	s.logger.Info("quote modified",
		zap.Int("client_number", clientNumber),
		zap.Int32("new_client_number", q.ClientNumber),
		zap.Int("sheets", priced.Sheets),
		zap.Float64("total", q.TotalPrice))
	return nil
}

// Delete removes the quote stored under clientNumber. Stock is not restored.
func (s *Service) Delete(ctx context.Context, clientNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	number, ok := toClientNumber(clientNumber)
	if !ok {
		return fmt.Errorf("%w: client number %d", apperrors.ErrQuoteNotFound, clientNumber)
	}

	existing, err := s.repo.FindByClientNumber(ctx, number)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return fmt.Errorf("%w: client number %d", apperrors.ErrQuoteNotFound, clientNumber)
	}

	if err := s.repo.RewriteExcluding(ctx, func(q models.Quote) bool {
		return q.ClientNumber != number
	}); err != nil {
		return err
	}

	s.logger.Info("quote deleted", zap.Int("client_number", clientNumber))
	return nil
}

// List returns every stored quote in file order.
func (s *Service) List(ctx context.Context) ([]models.Quote, error) {
	return s.repo.ScanAll(ctx)
}

// FindByClient matches the trimmed client name ignoring case.
func (s *Service) FindByClient(ctx context.Context, name string) ([]models.Quote, error) {
	return s.repo.FindByClientName(ctx, strings.TrimSpace(name))
}

// FindByNumber matches the client number.
func (s *Service) FindByNumber(ctx context.Context, number int) ([]models.Quote, error) {
	n, ok := toClientNumber(number)
	if !ok {
		return nil, nil
	}
	return s.repo.FindByClientNumber(ctx, n)
}

// FindByMonthYear returns the quotes dated in month/year.
func (s *Service) FindByMonthYear(ctx context.Context, month, year int) ([]models.Quote, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d", apperrors.ErrValidation, month)
	}
	return s.repo.FindByMonthYear(ctx, month, year)
}

// Summary reports total revenue, quote count and the average quote.
func (s *Service) Summary(ctx context.Context) (models.Summary, error) {
	return s.reporting.Summary(ctx)
}

// MonthlyRevenue reports revenue per month of year.
func (s *Service) MonthlyRevenue(ctx context.Context, year int) ([]models.MonthlyRevenue, error) {
	return s.reporting.MonthlyRevenue(ctx, year)
}

// Stock lists the stock entries in ledger order.
func (s *Service) Stock() []models.StockEntry {
	return s.ledger.Entries()
}

// EditStock overrides one stock row.
func (s *Service) EditStock(ctx context.Context, row int, thickness float64, quantity int) error {
	return s.ledger.Edit(ctx, row, thickness, quantity)
}

// EditStockMany applies several row overrides, all or nothing.
func (s *Service) EditStockMany(ctx context.Context, edits []stock.Edit) error {
	return s.ledger.EditMany(ctx, edits)
}

// price fills in the total of q and returns the pricing breakdown. The total
// is narrowed to what the quote file keeps so callers see the stored value;
// a total the file cannot hold is a validation error.
func (s *Service) price(q *models.Quote) (pricing.Result, error) {
	res, err := s.pricing.Price(pricing.Input{
		Width:         q.Width,
		Height:        q.Height,
		SheetPrice:    q.SheetPrice,
		LaborCost:     q.LaborCost,
		MarginPercent: q.MarginPercent,
	})
	if err != nil {
		return pricing.Result{}, err
	}

	total := codec.Narrow(res.Total)
	if !finite(total) {
		return pricing.Result{}, fmt.Errorf("%w: total price %g exceeds the largest storable amount %g",
			apperrors.ErrValidation, res.Total, math.MaxFloat32)
	}
	q.TotalPrice = total
	return res, nil
}

// build validates every field of in and assembles a quote without a price.
// All problems are reported together.
func (s *Service) build(in Input) (models.Quote, error) {
	verr := &apperrors.ValidationError{}
	var q models.Quote

	q.ClientName = text(verr, "client name", in.ClientName, models.ClientNameWidth)
	q.Product = text(verr, "product", in.Product, models.ProductWidth)
	q.Material = text(verr, "material", in.Material, models.MaterialWidth)

	if number, ok := toClientNumber(in.ClientNumber); ok {
		q.ClientNumber = number
	} else {
		verr.Add("client number must be between 1 and %d", math.MaxInt32)
	}

	date := strings.TrimSpace(in.Date)
	if !datePattern.MatchString(date) {
		verr.Add("date must be dd/mm/yyyy")
	} else if parsed, err := time.Parse(models.DateLayout, date); err != nil {
		verr.Add("date %q is not a valid date", date)
	} else if parsed.Year() < s.years.Min || parsed.Year() > s.years.Max {
		verr.Add("year must be between %d and %d", s.years.Min, s.years.Max)
	} else {
		q.Date = models.MustFixedString(date, models.DateWidth)
	}

	q.Thickness = positive(verr, "thickness", in.Thickness)
	q.Width = positive(verr, "width", in.Width)
	q.Height = positive(verr, "height", in.Height)
	q.SheetPrice = positive(verr, "sheet price", in.SheetPrice)
	q.LaborCost = positive(verr, "labor cost", in.LaborCost)

	if !finite(in.MarginPercent) || in.MarginPercent < 0 {
		verr.Add("margin must be 0 or greater")
	} else {
		storable(verr, "margin", in.MarginPercent)
	}
	q.MarginPercent = in.MarginPercent

	if err := verr.OrNil(); err != nil {
		return models.Quote{}, err
	}

	// Prices and dimensions are stored as float32, so pricing runs on the
	// narrowed values. Thickness keeps full precision: stock matches on it
	// exactly.
	q.Width = codec.Narrow(q.Width)
	q.Height = codec.Narrow(q.Height)
	q.SheetPrice = codec.Narrow(q.SheetPrice)
	q.LaborCost = codec.Narrow(q.LaborCost)
	q.MarginPercent = codec.Narrow(q.MarginPercent)
	return q, nil
}

func text(verr *apperrors.ValidationError, field, value string, width int) models.FixedString {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		verr.Add("%s must not be empty", field)
		return models.FixedString{}
	}
	fs, err := models.NewFixedString(trimmed, width)
	if err != nil {
		verr.Add("%s must be at most %d bytes without NUL characters", field, width)
		return models.FixedString{}
	}
	return fs
}

func positive(verr *apperrors.ValidationError, field string, value float64) float64 {
	if !finite(value) || value <= 0 {
		verr.Add("%s must be greater than 0", field)
		return value
	}
	if narrowed := storable(verr, field, value); narrowed == 0 {
		verr.Add("%s is too small to store", field)
	}
	return value
}

// storable reports a problem when value overflows the float32 the quote file
// keeps, and returns the narrowed value.
func storable(verr *apperrors.ValidationError, field string, value float64) float64 {
	narrowed := codec.Narrow(value)
	if !finite(narrowed) {
		verr.Add("%s must be at most %g", field, math.MaxFloat32)
	}
	return narrowed
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func toClientNumber(n int) (int32, bool) {
	if n <= 0 || n > math.MaxInt32 {
		return 0, false
	}
	return int32(n), true
}
