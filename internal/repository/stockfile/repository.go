package stockfile

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mamadbah2/chapaquote/internal/codec"
	"github.com/mamadbah2/chapaquote/internal/domain/models"
	"github.com/mamadbah2/chapaquote/internal/repository/blockfile"
)

// Repository persists the full stock list.
type Repository interface {
	// Load returns the stored entries and whether a stock file exists at all.
	Load(ctx context.Context) ([]models.StockEntry, bool, error)
	// Save overwrites the stored list with entries.
	Save(ctx context.Context, entries []models.StockEntry) error
}

// FileRepository implements Repository with fixed-size stock blocks.
type FileRepository struct {
	path   string
	logger *zap.Logger
}

// NewFileRepository builds a stock repository backed by path.
func NewFileRepository(path string, logger *zap.Logger) *FileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRepository{path: path, logger: logger}
}

// Path returns the backing file.
func (r *FileRepository) Path() string { return r.path }

// Load reads every entry in file order.
func (r *FileRepository) Load(ctx context.Context) ([]models.StockEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	exists, err := blockfile.Exists(r.path)
	if err != nil || !exists {
		return nil, false, err
	}

	blocks, err := blockfile.ReadAll(r.path, codec.StockBlockSize)
	if err != nil {
		return nil, true, fmt.Errorf("load stock: %w", err)
	}

	entries := make([]models.StockEntry, 0, len(blocks))
	for i, block := range blocks {
		e, err := codec.DecodeStockEntry(block)
		if err != nil {
			return nil, true, fmt.Errorf("decode stock entry #%d: %w", i, err)
		}
		entries = append(entries, e)
	}

	r.logger.Debug("stock loaded", zap.String("path", r.path), zap.Int("entries", len(entries)))
	return entries, true, nil
}

// Save atomically replaces the stock file, one block per entry in order.
func (r *FileRepository) Save(ctx context.Context, entries []models.StockEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	blocks := make([][]byte, 0, len(entries))
	for _, e := range entries {
		block, err := codec.EncodeStockEntry(e)
		if err != nil {
			return fmt.Errorf("encode stock entry %s: %w", e.Material, err)
		}
		blocks = append(blocks, block)
	}

	if err := blockfile.Replace(r.path, blocks); err != nil {
		return fmt.Errorf("save stock: %w", err)
	}
	return nil
}

type seedFile struct {
	Stock []struct {
		Material  string  `yaml:"material"`
		Thickness float64 `yaml:"thickness"`
		Quantity  int32   `yaml:"quantity"`
	} `yaml:"stock"`
}

// LoadSeed reads a YAML seed inventory of the form
//
//	stock:
//	  - material: Comun
//	    thickness: 1.5
//	    quantity: 10
func LoadSeed(path string) ([]models.StockEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes YAML seed content. Entries must name a material and carry
// a positive thickness and a non-negative quantity.
func ParseSeed(raw []byte) ([]models.StockEntry, error) {
	var doc seedFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	entries := make([]models.StockEntry, 0, len(doc.Stock))
	for i, item := range doc.Stock {
		if item.Material == "" {
			return nil, fmt.Errorf("seed entry #%d: material must be provided", i)
		}
		material, err := models.NewFixedString(item.Material, models.MaterialWidth)
		if err != nil {
			return nil, fmt.Errorf("seed entry #%d: %w", i, err)
		}
		if item.Thickness <= 0 {
			return nil, fmt.Errorf("seed entry #%d: thickness must be positive", i)
		}
		if item.Quantity < 0 {
			return nil, fmt.Errorf("seed entry #%d: quantity must not be negative", i)
		}
		entries = append(entries, models.StockEntry{Material: material, Thickness: item.Thickness, Quantity: item.Quantity})
	}
	return entries, nil
}
