package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/chapaquote/pkg/apperrors"
)

// MaxSheets is the largest job the engine prices. Stock quantities are int32,
// so no larger job could ever be reserved.
const MaxSheets = math.MaxInt32

// Panel is the size of one standard raw sheet, in the same unit as job
// dimensions (cm).
type Panel struct {
	Width  float64
	Height float64
}

// StandardPanel is the 150x300 sheet the shop stocks.
var StandardPanel = Panel{Width: 150, Height: 300}

// Input carries the job values the price depends on.
type Input struct {
	Width         float64
	Height        float64
	SheetPrice    float64
	LaborCost     float64
	MarginPercent float64
}

// Result is a priced job.
type Result struct {
	SheetsAcross int
	SheetsDown   int
	Sheets       int
	BaseCost     float64
	Total        float64
}

// Engine prices jobs by tiling them with whole panels. The tiling is
// rectangular, never a tighter nesting, so it can over-count but never
// under-count.
type Engine struct {
	panelWidth  decimal.Decimal
	panelHeight decimal.Decimal
}

// NewEngine builds an engine for panel. Non-positive dimensions fall back to
// StandardPanel.
func NewEngine(panel Panel) Engine {
	if panel.Width <= 0 || panel.Height <= 0 {
		panel = StandardPanel
	}
	return Engine{
		panelWidth:  decimal.NewFromFloat(panel.Width),
		panelHeight: decimal.NewFromFloat(panel.Height),
	}
}

// Panel reports the panel size in use.
func (e Engine) Panel() Panel {
	return Panel{Width: e.panelWidth.InexactFloat64(), Height: e.panelHeight.InexactFloat64()}
}

// Sheets returns how many panels along each side and in total a width x
// height job needs. Jobs above MaxSheets fail with apperrors.ErrValidation.
func (e Engine) Sheets(width, height float64) (across, down, total int, err error) {
	if !finite(width) || !finite(height) {
		return 0, 0, 0, fmt.Errorf("%w: dimensions must be finite", apperrors.ErrValidation)
	}
	a := ceilDiv(decimal.NewFromFloat(width), e.panelWidth)
	d := ceilDiv(decimal.NewFromFloat(height), e.panelHeight)
	t := a.Mul(d)
	if t.GreaterThan(maxSheets) {
		return 0, 0, 0, fmt.Errorf("%w: a %g x %g job needs more than %d sheets", apperrors.ErrValidation, width, height, MaxSheets)
	}
	return int(a.IntPart()), int(d.IntPart()), int(t.IntPart()), nil
}

// Total is (sheets * sheetPrice + labor) * (1 + margin/100). The amounts
// must be finite.
func (e Engine) Total(sheets int, sheetPrice, laborCost, marginPercent float64) (base, total float64) {
	b := baseCost(sheets, sheetPrice, laborCost)
	return b.InexactFloat64(), applyMargin(b, marginPercent).InexactFloat64()
}

// Price runs the full computation for in.
func (e Engine) Price(in Input) (Result, error) {
	if !finite(in.SheetPrice) || !finite(in.LaborCost) || !finite(in.MarginPercent) {
		return Result{}, fmt.Errorf("%w: amounts must be finite", apperrors.ErrValidation)
	}
	across, down, sheets, err := e.Sheets(in.Width, in.Height)
	if err != nil {
		return Result{}, err
	}
	base, total := e.Total(sheets, in.SheetPrice, in.LaborCost, in.MarginPercent)
	return Result{
		SheetsAcross: across,
		SheetsDown:   down,
		Sheets:       sheets,
		BaseCost:     base,
		Total:        total,
	}, nil
}

var maxSheets = decimal.NewFromInt(MaxSheets)

func ceilDiv(value, unit decimal.Decimal) decimal.Decimal {
	return value.DivRound(unit, 16).Ceil()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func baseCost(sheets int, sheetPrice, laborCost float64) decimal.Decimal {
	return decimal.NewFromInt(int64(sheets)).
		Mul(decimal.NewFromFloat(sheetPrice)).
		Add(decimal.NewFromFloat(laborCost))
}

var hundred = decimal.NewFromInt(100)

func applyMargin(base decimal.Decimal, marginPercent float64) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(marginPercent).Div(hundred))
	return base.Mul(factor)
}
