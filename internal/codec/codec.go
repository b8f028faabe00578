// Package codec encodes quotes and stock entries to the fixed-size blocks the
// data files are made of.
//
// Quote block (148 bytes, little-endian):
//
//	offset  size  field
//	0       50    client name, NUL padded
//	50      2     padding
//	52      4     client number, int32
//	56      11    date dd/mm/yyyy, NUL padded
//	67      30    product, NUL padded
//	97      20    material, NUL padded
//	117     3     padding
//	120     28    float32 x7: thickness, width, height, sheet price,
//	              labor cost, margin percent, total price
//
// Stock block (36 bytes, little-endian):
//
//	0       20    material, NUL padded
//	20      4     padding
//	24      8     thickness, float64
//	32      4     quantity, int32
//
// The padding mirrors natural C struct alignment so files written by the
// earlier desktop tool decode unchanged.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mamadbah2/chapaquote/internal/domain/models"
	"github.com/mamadbah2/chapaquote/pkg/apperrors"
)

const (
	QuoteBlockSize = 148
	StockBlockSize = 36
)

const (
	offClientName   = 0
	offClientNumber = 52
	offDate         = 56
	offProduct      = 67
	offMaterial     = 97
	offFloats       = 120

	offStockMaterial  = 0
	offStockThickness = 24
	offStockQuantity  = 32
)

var order = binary.LittleEndian

// EncodeQuote renders q as a QuoteBlockSize block.
func EncodeQuote(q models.Quote) ([]byte, error) {
	buf := make([]byte, QuoteBlockSize)

	fields := []struct {
		name  string
		value models.FixedString
		off   int
		width int
	}{
		{"client name", q.ClientName, offClientName, models.ClientNameWidth},
		{"date", q.Date, offDate, models.DateWidth},
		{"product", q.Product, offProduct, models.ProductWidth},
		{"material", q.Material, offMaterial, models.MaterialWidth},
	}
	for _, f := range fields {
		if err := putString(buf, f.off, f.width, f.value); err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.name, err)
		}
	}

	order.PutUint32(buf[offClientNumber:], uint32(q.ClientNumber))

	floats := [...]float64{q.Thickness, q.Width, q.Height, q.SheetPrice, q.LaborCost, q.MarginPercent, q.TotalPrice}
	for i, v := range floats {
		order.PutUint32(buf[offFloats+4*i:], math.Float32bits(float32(v)))
	}

	return buf, nil
}

// DecodeQuote parses a block produced by EncodeQuote.
func DecodeQuote(block []byte) (models.Quote, error) {
	if len(block) != QuoteBlockSize {
		return models.Quote{}, fmt.Errorf("%w: quote block is %d bytes, want %d", apperrors.ErrBlockSize, len(block), QuoteBlockSize)
	}

	var (
		q   models.Quote
		err error
	)
	if q.ClientName, err = getString(block, offClientName, models.ClientNameWidth); err != nil {
		return models.Quote{}, fmt.Errorf("decode client name: %w", err)
	}
	if q.Date, err = getString(block, offDate, models.DateWidth); err != nil {
		return models.Quote{}, fmt.Errorf("decode date: %w", err)
	}
	if q.Product, err = getString(block, offProduct, models.ProductWidth); err != nil {
		return models.Quote{}, fmt.Errorf("decode product: %w", err)
	}
	if q.Material, err = getString(block, offMaterial, models.MaterialWidth); err != nil {
		return models.Quote{}, fmt.Errorf("decode material: %w", err)
	}

	q.ClientNumber = int32(order.Uint32(block[offClientNumber:]))

	targets := [...]*float64{&q.Thickness, &q.Width, &q.Height, &q.SheetPrice, &q.LaborCost, &q.MarginPercent, &q.TotalPrice}
	for i, dst := range targets {
		*dst = float64(math.Float32frombits(order.Uint32(block[offFloats+4*i:])))
	}

	return q, nil
}

// EncodeStockEntry renders e as a StockBlockSize block.
func EncodeStockEntry(e models.StockEntry) ([]byte, error) {
	buf := make([]byte, StockBlockSize)
	if err := putString(buf, offStockMaterial, models.MaterialWidth, e.Material); err != nil {
		return nil, fmt.Errorf("encode material: %w", err)
	}
	order.PutUint64(buf[offStockThickness:], math.Float64bits(e.Thickness))
	order.PutUint32(buf[offStockQuantity:], uint32(e.Quantity))
	return buf, nil
}

// DecodeStockEntry parses a block produced by EncodeStockEntry.
func DecodeStockEntry(block []byte) (models.StockEntry, error) {
	if len(block) != StockBlockSize {
		return models.StockEntry{}, fmt.Errorf("%w: stock block is %d bytes, want %d", apperrors.ErrBlockSize, len(block), StockBlockSize)
	}
	material, err := getString(block, offStockMaterial, models.MaterialWidth)
	if err != nil {
		return models.StockEntry{}, fmt.Errorf("decode material: %w", err)
	}
	return models.StockEntry{
		Material:  material,
		Thickness: math.Float64frombits(order.Uint64(block[offStockThickness:])),
		Quantity:  int32(order.Uint32(block[offStockQuantity:])),
	}, nil
}

// Narrow rounds v to the precision a quote float field keeps on disk.
func Narrow(v float64) float64 {
	return float64(float32(v))
}

func putString(buf []byte, off, width int, s models.FixedString) error {
	if s.Len() > width {
		return fmt.Errorf("%w: %d bytes, limit %d", apperrors.ErrFieldTooLong, s.Len(), width)
	}
	copy(buf[off:off+width], s.String())
	return nil
}

func getString(block []byte, off, width int) (models.FixedString, error) {
	raw := bytes.TrimRight(block[off:off+width], "\x00")
	return models.NewFixedString(string(raw), width)
}
