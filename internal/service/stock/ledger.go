package stock

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/chapaquote/internal/domain/models"
	repo "github.com/mamadbah2/chapaquote/internal/repository/stockfile"
	"github.com/mamadbah2/chapaquote/pkg/apperrors"
)

// Edit is an administrative override of one ledger row.
type Edit struct {
	Row       int
	Thickness float64
	Quantity  int
}

// Ledger owns the in-memory stock list and keeps it mirrored to the stock
// file. Every mutation persists the full list before returning.
type Ledger struct {
	mu      sync.Mutex
	entries []models.StockEntry
	repo    repo.Repository
	logger  *zap.Logger
}

// NewLedger starts a ledger holding seed. Call Load to pick up persisted state.
func NewLedger(repository repo.Repository, seed []models.StockEntry, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		entries: append([]models.StockEntry(nil), seed...),
		repo:    repository,
		logger:  logger,
	}
}

// Load replaces the list with the persisted one when a stock file exists.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, exists, err := l.repo.Load(ctx)
	if err != nil {
		return err
	}
	if !exists {
		l.logger.Info("no stock file, using seed inventory", zap.Int("entries", len(l.entries)))
		return nil
	}

	l.entries = entries
	l.logger.Info("stock loaded", zap.Int("entries", len(entries)))
	return nil
}

// Save persists the current list.
func (l *Ledger) Save(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo.Save(ctx, l.entries)
}

// Entries returns a copy of the list in order.
func (l *Ledger) Entries() []models.StockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.StockEntry(nil), l.entries...)
}

// Reserve takes count sheets from the first entry matching material and
// thickness exactly. On any failure the ledger is left as it was.
func (l *Ledger) Reserve(ctx context.Context, material string, thickness float64, count int) error {
	if count < 0 {
		return fmt.Errorf("%w: sheet count %d", apperrors.ErrValidation, count)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.find(material, thickness)
	if idx < 0 {
		return fmt.Errorf("%w: %s (%g mm)", apperrors.ErrUnknownMaterial, material, thickness)
	}

	entry := &l.entries[idx]
	if int64(entry.Quantity) < int64(count) {
		return fmt.Errorf("%w: %s (%g mm) has %d sheets, %d needed", apperrors.ErrInsufficientStock, material, thickness, entry.Quantity, count)
	}

	previous := entry.Quantity
	entry.Quantity -= int32(count)
	if err := l.repo.Save(ctx, l.entries); err != nil {
		entry.Quantity = previous
		return fmt.Errorf("persist reservation: %w", err)
	}

	l.logger.Info("stock reserved",
		zap.String("material", material),
		zap.Float64("thickness", thickness),
		zap.Int("sheets", count),
		zap.Int32("remaining", entry.Quantity))
	return nil
}

// Release returns count sheets to the matching entry. It undoes a
// reservation whose quote could not be stored.
func (l *Ledger) Release(ctx context.Context, material string, thickness float64, count int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.find(material, thickness)
	if idx < 0 {
		return fmt.Errorf("%w: %s (%g mm)", apperrors.ErrUnknownMaterial, material, thickness)
	}
	entry := &l.entries[idx]
	if int64(entry.Quantity)+int64(count) > math.MaxInt32 {
		return fmt.Errorf("%w: quantity overflow", apperrors.ErrInvalidRow)
	}

	previous := entry.Quantity
	entry.Quantity += int32(count)
	if err := l.repo.Save(ctx, l.entries); err != nil {
		entry.Quantity = previous
		return fmt.Errorf("persist release: %w", err)
	}

	l.logger.Info("stock released", zap.String("material", material), zap.Float64("thickness", thickness), zap.Int("sheets", count))
	return nil
}

// Edit overrides the thickness and quantity of one row.
func (l *Ledger) Edit(ctx context.Context, row int, thickness float64, quantity int) error {
	return l.EditMany(ctx, []Edit{{Row: row, Thickness: thickness, Quantity: quantity}})
}

// EditMany validates every edit before applying any, then persists once.
func (l *Ledger) EditMany(ctx context.Context, edits []Edit) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range edits {
		if err := l.validateEdit(e); err != nil {
			return err
		}
	}

	previous := append([]models.StockEntry(nil), l.entries...)
	for _, e := range edits {
		l.entries[e.Row].Thickness = e.Thickness
		l.entries[e.Row].Quantity = int32(e.Quantity)
	}

	if err := l.repo.Save(ctx, l.entries); err != nil {
		l.entries = previous
		return fmt.Errorf("persist stock edit: %w", err)
	}

	l.logger.Info("stock edited", zap.Int("rows", len(edits)))
	return nil
}

func (l *Ledger) validateEdit(e Edit) error {
	switch {
	case e.Row < 0 || e.Row >= len(l.entries):
		return fmt.Errorf("%w: row %d out of range (0-%d)", apperrors.ErrInvalidRow, e.Row, len(l.entries)-1)
	case math.IsNaN(e.Thickness) || math.IsInf(e.Thickness, 0) || e.Thickness <= 0:
		return fmt.Errorf("%w: row %d thickness must be greater than 0", apperrors.ErrInvalidRow, e.Row)
	case e.Quantity < 0:
		return fmt.Errorf("%w: row %d quantity must not be negative", apperrors.ErrInvalidRow, e.Row)
	case e.Quantity > math.MaxInt32:
		return fmt.Errorf("%w: row %d quantity too large", apperrors.ErrInvalidRow, e.Row)
	}
	return nil
}

func (l *Ledger) find(material string, thickness float64) int {
	for i, e := range l.entries {
		if e.Matches(material, thickness) {
			return i
		}
	}
	return -1
}
