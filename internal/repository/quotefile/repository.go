package quotefile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/chapaquote/internal/codec"
	"github.com/mamadbah2/chapaquote/internal/domain/models"
	"github.com/mamadbah2/chapaquote/internal/repository/blockfile"
)

// RewriteFunc decides the fate of one stored quote during a rewrite: the
// returned quote replaces it when keep is true, otherwise it is dropped.
type RewriteFunc func(q models.Quote) (out models.Quote, keep bool)

// Repository defines the operations over the quote file. The file is the
// database; nothing is cached between calls.
type Repository interface {
	Append(ctx context.Context, q models.Quote) error
	ScanAll(ctx context.Context) ([]models.Quote, error)
	Rewrite(ctx context.Context, fn RewriteFunc) error
	RewriteExcluding(ctx context.Context, keep func(models.Quote) bool) error
	FindByClientName(ctx context.Context, name string) ([]models.Quote, error)
	FindByClientNumber(ctx context.Context, number int32) ([]models.Quote, error)
	FindByMonthYear(ctx context.Context, month, year int) ([]models.Quote, error)
}

// FileRepository implements Repository over a file of fixed-size quote blocks.
type FileRepository struct {
	path   string
	logger *zap.Logger
}

// NewFileRepository builds a repository backed by path. The file is created
// lazily on first append.
func NewFileRepository(path string, logger *zap.Logger) *FileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRepository{path: path, logger: logger}
}

// Path returns the backing file.
func (r *FileRepository) Path() string { return r.path }

// Append encodes q and adds it to the end of the file without reading it.
func (r *FileRepository) Append(ctx context.Context, q models.Quote) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	block, err := codec.EncodeQuote(q)
	if err != nil {
		return fmt.Errorf("encode quote %d: %w", q.ClientNumber, err)
	}
	if err := blockfile.Append(r.path, block); err != nil {
		return fmt.Errorf("append quote %d: %w", q.ClientNumber, err)
	}

	r.logger.Debug("quote appended", zap.Int32("client_number", q.ClientNumber))
	return nil
}

// ScanAll decodes every quote in append order.
func (r *FileRepository) ScanAll(ctx context.Context) ([]models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blocks, err := blockfile.ReadAll(r.path, codec.QuoteBlockSize)
	if err != nil {
		return nil, fmt.Errorf("scan quotes: %w", err)
	}

	quotes := make([]models.Quote, 0, len(blocks))
	for i, block := range blocks {
		q, err := codec.DecodeQuote(block)
		if err != nil {
			return nil, fmt.Errorf("decode quote #%d: %w", i, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// Rewrite replaces the file with the output of fn applied to every stored
// quote, preserving relative order.
func (r *FileRepository) Rewrite(ctx context.Context, fn RewriteFunc) error {
	quotes, err := r.ScanAll(ctx)
	if err != nil {
		return err
	}

	blocks := make([][]byte, 0, len(quotes))
	for _, q := range quotes {
		out, keep := fn(q)
		if !keep {
			continue
		}
		block, err := codec.EncodeQuote(out)
		if err != nil {
			return fmt.Errorf("encode quote %d: %w", out.ClientNumber, err)
		}
		blocks = append(blocks, block)
	}

	if err := blockfile.Replace(r.path, blocks); err != nil {
		return fmt.Errorf("rewrite quotes: %w", err)
	}

	r.logger.Debug("quote file rewritten", zap.Int("before", len(quotes)), zap.Int("after", len(blocks)))
	return nil
}

// RewriteExcluding keeps only the quotes for which keep returns true.
func (r *FileRepository) RewriteExcluding(ctx context.Context, keep func(models.Quote) bool) error {
	return r.Rewrite(ctx, func(q models.Quote) (models.Quote, bool) {
		return q, keep(q)
	})
}

// FindByClientName matches the client name exactly, ignoring case.
func (r *FileRepository) FindByClientName(ctx context.Context, name string) ([]models.Quote, error) {
	return r.filter(ctx, func(q models.Quote) bool {
		return q.ClientName.EqualFold(name)
	})
}

// FindByClientNumber matches the client number exactly.
func (r *FileRepository) FindByClientNumber(ctx context.Context, number int32) ([]models.Quote, error) {
	return r.filter(ctx, func(q models.Quote) bool {
		return q.ClientNumber == number
	})
}

// FindByMonthYear returns quotes dated in the given month. Stored dates that
// do not parse are skipped.
func (r *FileRepository) FindByMonthYear(ctx context.Context, month, year int) ([]models.Quote, error) {
	return r.filter(ctx, func(q models.Quote) bool {
		date, err := q.ParsedDate()
		if err != nil {
			r.logger.Debug("skip quote with invalid date", zap.Int32("client_number", q.ClientNumber), zap.String("date", q.Date.String()), zap.Error(err))
			return false
		}
		return int(date.Month()) == month && date.Year() == year
	})
}

func (r *FileRepository) filter(ctx context.Context, match func(models.Quote) bool) ([]models.Quote, error) {
	quotes, err := r.ScanAll(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Quote
	for _, q := range quotes {
		if match(q) {
			out = append(out, q)
		}
	}
	return out, nil
}
