package quotes

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/chapaquote/internal/domain/models"
	"github.com/mamadbah2/chapaquote/internal/repository/quotefile"
	"github.com/mamadbah2/chapaquote/internal/repository/stockfile"
	"github.com/mamadbah2/chapaquote/internal/service/pricing"
	"github.com/mamadbah2/chapaquote/internal/service/reporting"
	"github.com/mamadbah2/chapaquote/internal/service/stock"
	"github.com/mamadbah2/chapaquote/pkg/apperrors"
)

type fixture struct {
	svc    *Service
	quotes *quotefile.FileRepository
	stock  *stockfile.FileRepository
	ledger *stock.Ledger
}

// brokenAppend fails every append while delegating reads.
type brokenAppend struct {
	quotefile.Repository
}

func (brokenAppend) Append(context.Context, models.Quote) error {
	return errors.New("disk full")
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	quotes := quotefile.NewFileRepository(filepath.Join(dir, "presupuestos.dat"), nil)
	stockRepo := stockfile.NewFileRepository(filepath.Join(dir, "stock.dat"), nil)
	ledger := stock.NewLedger(stockRepo, models.DefaultStock(), nil)
	require.NoError(t, ledger.Load(context.Background()))

	svc := NewService(quotes, ledger, pricing.NewEngine(pricing.StandardPanel),
		reporting.NewService(quotes, nil), YearRange{Min: 2025, Max: 2030}, nil)
	return fixture{svc: svc, quotes: quotes, stock: stockRepo, ledger: ledger}
}

func validInput(number int) Input {
	return Input{
		ClientName:    "Herreria Sur",
		ClientNumber:  number,
		Date:          "10/06/2025",
		Product:       "Puerta",
		Material:      "Comun",
		Thickness:     1.5,
		Width:         200,
		Height:        200,
		SheetPrice:    100,
		LaborCost:     50,
		MarginPercent: 10,
	}
}

func (f fixture) quantity(t *testing.T, material string, thickness float64) int32 {
	t.Helper()
	for _, e := range f.ledger.Entries() {
		if e.Matches(material, thickness) {
			return e.Quantity
		}
	}
	t.Fatalf("no stock entry %s/%v", material, thickness)
	return 0
}

func (f fixture) fileBytes(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile(f.quotes.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return raw
}

func TestCreateConsumesStock(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Create(context.Background(), validInput(1))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sheets)
	assert.Equal(t, 275.0, res.Total)
	assert.Equal(t, int32(8), f.quantity(t, "Comun", 1.5))

	stored, exists, err := f.stock.Load(context.Background())
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, f.ledger.Entries(), stored)

	quotes, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "Herreria Sur", quotes[0].ClientName.String())
	assert.Equal(t, int32(1), quotes[0].ClientNumber)
	assert.Equal(t, 275.0, quotes[0].TotalPrice)
}

func TestCreateWithoutMargin(t *testing.T) {
	f := newFixture(t)
	in := validInput(1)
	in.MarginPercent = 0

	res, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 250.0, res.Total)
}

func TestCreateRejectsDuplicateClientNumber(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), validInput(7))
	require.NoError(t, err)
	before := f.fileBytes(t)

	_, err = f.svc.Create(context.Background(), validInput(7))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateClient)

	assert.Equal(t, before, f.fileBytes(t))
	assert.Equal(t, int32(8), f.quantity(t, "Comun", 1.5), "duplicate must not reserve stock")

	quotes, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		ok     bool
	}{
		{"valid", func(*Input) {}, true},
		{"client name at width", func(in *Input) { in.ClientName = strings.Repeat("a", models.ClientNameWidth) }, true},
		{"client name over width", func(in *Input) { in.ClientName = strings.Repeat("a", models.ClientNameWidth+1) }, false},
		{"blank client name", func(in *Input) { in.ClientName = "   " }, false},
		{"product at width", func(in *Input) { in.Product = strings.Repeat("p", models.ProductWidth) }, true},
		{"product over width", func(in *Input) { in.Product = strings.Repeat("p", models.ProductWidth+1) }, false},
		{"empty material", func(in *Input) { in.Material = "" }, false},
		{"zero client number", func(in *Input) { in.ClientNumber = 0 }, false},
		{"negative client number", func(in *Input) { in.ClientNumber = -3 }, false},
		{"bad date format", func(in *Input) { in.Date = "2025-06-10" }, false},
		{"impossible date", func(in *Input) { in.Date = "31/02/2025" }, false},
		{"year too early", func(in *Input) { in.Date = "31/12/2024" }, false},
		{"year too late", func(in *Input) { in.Date = "01/01/2031" }, false},
		{"last allowed year", func(in *Input) { in.Date = "31/12/2030" }, true},
		{"zero thickness", func(in *Input) { in.Thickness = 0 }, false},
		{"negative width", func(in *Input) { in.Width = -1 }, false},
		{"zero height", func(in *Input) { in.Height = 0 }, false},
		{"zero sheet price", func(in *Input) { in.SheetPrice = 0 }, false},
		{"zero labor", func(in *Input) { in.LaborCost = 0 }, false},
		{"zero margin", func(in *Input) { in.MarginPercent = 0 }, true},
		{"negative margin", func(in *Input) { in.MarginPercent = -0.5 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput(1)
			tt.mutate(&in)

			_, err := f.svc.Create(context.Background(), in)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Nil(t, f.fileBytes(t))
			assert.Equal(t, int32(10), f.quantity(t, "Comun", 1.5))
		})
	}
}

func TestCreateReportsEveryProblem(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), Input{})
	require.Error(t, err)

	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 10)
}

func TestCreateFailsOnStock(t *testing.T) {
	f := newFixture(t)

	in := validInput(1)
	in.Width, in.Height = 1500, 3000 // 100 sheets
	_, err := f.svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	in = validInput(2)
	in.Material = "Bronce"
	_, err = f.svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrUnknownMaterial)

	assert.Nil(t, f.fileBytes(t))
	assert.Equal(t, int32(10), f.quantity(t, "Comun", 1.5))
}

func TestCreateRejectsValuesBeyondStoredPrecision(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"width above float32", func(in *Input) { in.Width = 1e39 }},
		{"sheet price above float32", func(in *Input) { in.SheetPrice = 1e39 }},
		{"labor above float32", func(in *Input) { in.LaborCost = 1e39 }},
		{"margin above float32", func(in *Input) { in.MarginPercent = 1e39 }},
		{"width below float32", func(in *Input) { in.Width = 1e-50 }},
		{"total above float32", func(in *Input) { in.SheetPrice = 3e38 }},
		{"more sheets than int32", func(in *Input) { in.Width, in.Height = 3e20, 3e20 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput(1)
			tt.mutate(&in)

			var err error
			require.NotPanics(t, func() { _, err = f.svc.Create(context.Background(), in) })
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Nil(t, f.fileBytes(t))
			assert.Equal(t, int32(10), f.quantity(t, "Comun", 1.5))

			summary, err := f.svc.Summary(context.Background())
			require.NoError(t, err)
			assert.Zero(t, summary.Count)
		})
	}
}

func TestOversizedSheetCountIsReportedAsSheets(t *testing.T) {
	f := newFixture(t)
	in := validInput(1)
	in.Width, in.Height = 3e20, 3e20

	_, err := f.svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than 2147483647 sheets")
	assert.NotContains(t, err.Error(), "sheet count -")
}

func TestModifyRejectsUnstorableTotal(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), validInput(1))
	require.NoError(t, err)
	before := f.fileBytes(t)

	in := validInput(1)
	in.SheetPrice = 3e38
	err = f.svc.Modify(context.Background(), 1, in)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, before, f.fileBytes(t))

	summary, err := f.svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 275.0, summary.TotalRevenue)
}

func TestCreateReleasesStockWhenAppendFails(t *testing.T) {
	f := newFixture(t)
	svc := NewService(brokenAppend{f.quotes}, f.ledger, pricing.NewEngine(pricing.StandardPanel),
		reporting.NewService(f.quotes, nil), YearRange{Min: 2025, Max: 2030}, nil)

	_, err := svc.Create(context.Background(), validInput(1))
	require.Error(t, err)
	assert.Equal(t, int32(10), f.quantity(t, "Comun", 1.5))
	assert.Nil(t, f.fileBytes(t))
}

func TestModify(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), validInput(1))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), validInput(2))
	require.NoError(t, err)

	in := validInput(1)
	in.Product = "Porton"
	in.Width, in.Height = 300, 601
	in.MarginPercent = 0
	require.NoError(t, f.svc.Modify(context.Background(), 1, in))

	quotes, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, int32(1), quotes[0].ClientNumber)
	assert.Equal(t, "Porton", quotes[0].Product.String())
	assert.Equal(t, 650.0, quotes[0].TotalPrice) // 6 sheets * 100 + 50
	assert.Equal(t, int32(2), quotes[1].ClientNumber)

	assert.Equal(t, int32(6), f.quantity(t, "Comun", 1.5), "modify does not touch stock")
}

func TestModifyCanRenumber(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), validInput(1))
	require.NoError(t, err)

	require.NoError(t, f.svc.Modify(context.Background(), 1, validInput(5)))

	found, err := f.svc.FindByNumber(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, found, 1)
	found, err = f.svc.FindByNumber(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestModifyFailuresLeaveFileUntouched(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), validInput(1))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), validInput(2))
	require.NoError(t, err)
	before := f.fileBytes(t)

	assert.ErrorIs(t, f.svc.Modify(context.Background(), 9, validInput(9)), apperrors.ErrQuoteNotFound)
	assert.ErrorIs(t, f.svc.Modify(context.Background(), 1, validInput(2)), apperrors.ErrDuplicateClient)

	bad := validInput(1)
	bad.Date = "01/01/1999"
	assert.ErrorIs(t, f.svc.Modify(context.Background(), 1, bad), apperrors.ErrValidation)

	assert.Equal(t, before, f.fileBytes(t))
}

func TestDeleteScenario(t *testing.T) {
	f := newFixture(t)
	for _, n := range []int{1, 2, 3} {
		in := validInput(n)
		in.Width, in.Height = 100, 100
		_, err := f.svc.Create(context.Background(), in)
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.Delete(context.Background(), 2))

	quotes, err := f.quotes.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, int32(1), quotes[0].ClientNumber)
	assert.Equal(t, int32(3), quotes[1].ClientNumber)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), 2), apperrors.ErrQuoteNotFound)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), 0), apperrors.ErrQuoteNotFound)
	assert.Equal(t, int32(7), f.quantity(t, "Comun", 1.5), "delete does not restore stock")
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	inputs := []Input{validInput(1), validInput(2), validInput(3)}
	inputs[1].ClientName = "Otro Cliente"
	inputs[2].Date = "01/07/2025"
	for _, in := range inputs {
		in.Width, in.Height = 100, 100
		_, err := f.svc.Create(context.Background(), in)
		require.NoError(t, err)
	}

	byName, err := f.svc.FindByClient(context.Background(), "HERRERIA SUR")
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	byNumber, err := f.svc.FindByNumber(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, byNumber, 1)
	assert.Equal(t, "Otro Cliente", byNumber[0].ClientName.String())

	june, err := f.svc.FindByMonthYear(context.Background(), 6, 2025)
	require.NoError(t, err)
	assert.Len(t, june, 2)

	_, err = f.svc.FindByMonthYear(context.Background(), 13, 2025)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	summary, err := f.svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 495.0, summary.TotalRevenue) // 3 * (100 + 50) * 1.1
	assert.InDelta(t, 165.0, summary.Average, 1e-9)

	months, err := f.svc.MonthlyRevenue(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, months[5].Count)
	assert.Equal(t, 1, months[6].Count)
}

func TestStockPassThrough(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.EditStock(context.Background(), 0, 1.5, 1))
	assert.Equal(t, int32(1), f.svc.Stock()[0].Quantity)

	require.NoError(t, f.svc.EditStockMany(context.Background(), []stock.Edit{
		{Row: 1, Thickness: 2, Quantity: 1},
		{Row: 2, Thickness: 1.8, Quantity: 0},
	}))
	entries := f.svc.Stock()
	assert.Equal(t, int32(1), entries[1].Quantity)
	assert.Equal(t, int32(0), entries[2].Quantity)

	_, err := f.svc.Create(context.Background(), validInput(1))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
}
