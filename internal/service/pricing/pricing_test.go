package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/chapaquote/pkg/apperrors"
)

func TestSheets(t *testing.T) {
	engine := NewEngine(StandardPanel)

	tests := []struct {
		name          string
		width, height float64
		across, down  int
		total         int
	}{
		{"exact panel", 150, 300, 1, 1, 1},
		{"one cm wider", 151, 300, 2, 1, 2},
		{"two by three", 300, 601, 2, 3, 6},
		{"small job", 10, 10, 1, 1, 1},
		{"square 200", 200, 200, 2, 1, 2},
		{"fractional", 150.5, 300.01, 2, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			across, down, total, err := engine.Sheets(tt.width, tt.height)
			require.NoError(t, err)
			assert.Equal(t, tt.across, across)
			assert.Equal(t, tt.down, down)
			assert.Equal(t, tt.total, total)
		})
	}
}

func TestTotal(t *testing.T) {
	engine := NewEngine(StandardPanel)

	base, total := engine.Total(2, 100, 50, 10)
	assert.Equal(t, 250.0, base)
	assert.Equal(t, 275.0, total)

	base, total = engine.Total(3, 33.3, 0.1, 0)
	assert.Equal(t, 100.0, base)
	assert.Equal(t, 100.0, total)
}

func TestPrice(t *testing.T) {
	res, err := NewEngine(StandardPanel).Price(Input{
		Width:         300,
		Height:        601,
		SheetPrice:    1000,
		LaborCost:     500,
		MarginPercent: 20,
	})

	require.NoError(t, err)
	assert.Equal(t, Result{SheetsAcross: 2, SheetsDown: 3, Sheets: 6, BaseCost: 6500, Total: 7800}, res)
}

func TestNewEngineFallsBackToStandardPanel(t *testing.T) {
	assert.Equal(t, StandardPanel, NewEngine(Panel{}).Panel())
	assert.Equal(t, Panel{Width: 100, Height: 200}, NewEngine(Panel{Width: 100, Height: 200}).Panel())
}

func TestCustomPanel(t *testing.T) {
	_, _, total, err := NewEngine(Panel{Width: 100, Height: 100}).Sheets(250, 150)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
}

func TestSheetsRejectsOversizedJobs(t *testing.T) {
	engine := NewEngine(StandardPanel)

	_, _, _, err := engine.Sheets(3e20, 3e20)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.ErrorContains(t, err, "sheets")

	// 150 * 2^31 cm across a single row is one sheet too many.
	_, _, _, err = engine.Sheets(150*float64(MaxSheets+1), 300)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, _, total, err := engine.Sheets(150*float64(MaxSheets), 300)
	require.NoError(t, err)
	assert.Equal(t, MaxSheets, total)

	_, _, _, err = engine.Sheets(math.Inf(1), 300)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPriceRejectsNonFiniteAmounts(t *testing.T) {
	_, err := NewEngine(StandardPanel).Price(Input{Width: 10, Height: 10, SheetPrice: math.Inf(1), LaborCost: 1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
