package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/chapaquote/internal/domain/models"
	"github.com/mamadbah2/chapaquote/internal/service/quotes"
	"github.com/mamadbah2/chapaquote/internal/service/stock"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// QuoteService is the slice of the quote service the dispatcher drives.
type QuoteService interface {
	Create(ctx context.Context, in quotes.Input) (quotes.CreateResult, error)
	Modify(ctx context.Context, clientNumber int, in quotes.Input) error
	Delete(ctx context.Context, clientNumber int) error
	List(ctx context.Context) ([]models.Quote, error)
	FindByClient(ctx context.Context, name string) ([]models.Quote, error)
	FindByNumber(ctx context.Context, number int) ([]models.Quote, error)
	FindByMonthYear(ctx context.Context, month, year int) ([]models.Quote, error)
	Summary(ctx context.Context) (models.Summary, error)
	MonthlyRevenue(ctx context.Context, year int) ([]models.MonthlyRevenue, error)
	Stock() []models.StockEntry
	EditStock(ctx context.Context, row int, thickness float64, quantity int) error
	EditStockMany(ctx context.Context, edits []stock.Edit) error
}

// Dispatcher executes parsed commands and renders a plain-text reply.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	quotes QuoteService
	logger *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(quoteService QuoteService, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{quotes: quoteService, logger: logger}
}

// HandleCommand runs cmd against the quote service.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.Any("args", cmd.Args))

	switch cmd.Type {
	case models.CommandCreate:
		in, err := buildInput(cmd.Args, 0)
		if err != nil {
			return "", err
		}
		res, err := s.quotes.Create(ctx, in)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Quote %d saved: %d sheets, total %.2f.", in.ClientNumber, res.Sheets, res.Total), nil

	case models.CommandModify:
		target, err := requireInt(cmd.Args, "id")
		if err != nil {
			return "", err
		}
		in, err := buildInput(cmd.Args, target)
		if err != nil {
			return "", err
		}
		if err := s.quotes.Modify(ctx, target, in); err != nil {
			return "", err
		}
		return fmt.Sprintf("Quote %d modified.", target), nil

	case models.CommandDelete:
		number, err := requireInt(cmd.Args, "number")
		if err != nil {
			return "", err
		}
		if err := s.quotes.Delete(ctx, number); err != nil {
			return "", err
		}
		return fmt.Sprintf("Quote %d deleted.", number), nil

	case models.CommandList:
		found, err := s.quotes.List(ctx)
		if err != nil {
			return "", err
		}
		return formatQuotes(found), nil

	case models.CommandFindClient:
		name, ok := cmd.Args["client"]
		if !ok || strings.TrimSpace(name) == "" {
			return "", fmt.Errorf("%w: client is required", ErrInvalidArguments)
		}
		found, err := s.quotes.FindByClient(ctx, strings.TrimSpace(name))
		if err != nil {
			return "", err
		}
		return formatQuotes(found), nil

	case models.CommandFindNumber:
		number, err := requireInt(cmd.Args, "number")
		if err != nil {
			return "", err
		}
		found, err := s.quotes.FindByNumber(ctx, number)
		if err != nil {
			return "", err
		}
		return formatQuotes(found), nil

	case models.CommandFindMonth:
		month, err := requireInt(cmd.Args, "month")
		if err != nil {
			return "", err
		}
		year, err := requireInt(cmd.Args, "year")
		if err != nil {
			return "", err
		}
		found, err := s.quotes.FindByMonthYear(ctx, month, year)
		if err != nil {
			return "", err
		}
		return formatQuotes(found), nil

	case models.CommandSummary:
		summary, err := s.quotes.Summary(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Quotes: %d\nTotal revenue: %.2f\nAverage: %.2f", summary.Count, summary.TotalRevenue, summary.Average), nil

	case models.CommandMonthly:
		year, err := requireInt(cmd.Args, "year")
		if err != nil {
			return "", err
		}
		months, err := s.quotes.MonthlyRevenue(ctx, year)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, m := range months {
			fmt.Fprintf(&b, "%02d/%d  %3d quotes  %12.2f\n", m.Month, m.Year, m.Count, m.Revenue)
		}
		return strings.TrimRight(b.String(), "\n"), nil

	case models.CommandStock:
		return formatStock(s.quotes.Stock()), nil

	case models.CommandStockEdit:
		return s.editStock(ctx, cmd.Args)

	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Raw)
	}
}

// editStock accepts either row/thickness/quantity for a single row or
// rowN.thickness/rowN.quantity pairs for several rows at once.
func (s *Service) editStock(ctx context.Context, args map[string]string) (string, error) {
	if _, single := args["row"]; single {
		row, err := requireInt(args, "row")
		if err != nil {
			return "", err
		}
		thickness, err := requireFloat(args, "thickness")
		if err != nil {
			return "", err
		}
		quantity, err := requireInt(args, "quantity")
		if err != nil {
			return "", err
		}
		if err := s.quotes.EditStock(ctx, row, thickness, quantity); err != nil {
			return "", err
		}
		return fmt.Sprintf("Stock row %d updated.", row), nil
	}

	edits, err := parseRowEdits(args)
	if err != nil {
		return "", err
	}
	if err := s.quotes.EditStockMany(ctx, edits); err != nil {
		return "", err
	}
	return fmt.Sprintf("Stock updated (%d rows).", len(edits)), nil
}

// rowEdit collects the fields given for one rowN prefix.
type rowEdit struct {
	edit                   stock.Edit
	hasThickness, hasQuant bool
}

// parseRowEdits reads rowN.thickness/rowN.quantity pairs. Every row named must
// carry both fields.
func parseRowEdits(args map[string]string) ([]stock.Edit, error) {
	byRow := map[int]*rowEdit{}
	var order []int
	for key, value := range args {
		prefix, field, ok := strings.Cut(key, ".")
		if !ok || !strings.HasPrefix(prefix, "row") {
			continue
		}
		row, err := strconv.Atoi(strings.TrimPrefix(prefix, "row"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidArguments, key)
		}
		r, seen := byRow[row]
		if !seen {
			r = &rowEdit{edit: stock.Edit{Row: row}}
			byRow[row] = r
			order = append(order, row)
		}
		switch field {
		case "thickness":
			if r.edit.Thickness, err = parseDecimal(value); err != nil {
				return nil, fmt.Errorf("%w: %s=%s", ErrInvalidArguments, key, value)
			}
			r.hasThickness = true
		case "quantity":
			if r.edit.Quantity, err = strconv.Atoi(strings.TrimSpace(value)); err != nil {
				return nil, fmt.Errorf("%w: %s=%s", ErrInvalidArguments, key, value)
			}
			r.hasQuant = true
		default:
			return nil, fmt.Errorf("%w: unknown field %s", ErrInvalidArguments, key)
		}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: no stock rows given", ErrInvalidArguments)
	}

	slices.Sort(order)
	edits := make([]stock.Edit, 0, len(order))
	for _, row := range order {
		r := byRow[row]
		switch {
		case !r.hasThickness:
			return nil, fmt.Errorf("%w: row%d.thickness is required", ErrInvalidArguments, row)
		case !r.hasQuant:
			return nil, fmt.Errorf("%w: row%d.quantity is required", ErrInvalidArguments, row)
		}
		edits = append(edits, r.edit)
	}
	return edits, nil
}

// buildInput maps key=value arguments onto a quote input. Missing numeric
// fields stay zero and are rejected by the service's validation.
func buildInput(args map[string]string, defaultNumber int) (quotes.Input, error) {
	in := quotes.Input{
		ClientName:   args["client"],
		ClientNumber: defaultNumber,
		Date:         args["date"],
		Product:      args["product"],
		Material:     args["material"],
	}

	ints := map[string]*int{"number": &in.ClientNumber}
	for key, dst := range ints {
		if raw, ok := args[key]; ok {
			v, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return quotes.Input{}, fmt.Errorf("%w: %s=%s", ErrInvalidArguments, key, raw)
			}
			*dst = v
		}
	}

	floats := map[string]*float64{
		"thickness": &in.Thickness,
		"width":     &in.Width,
		"height":    &in.Height,
		"price":     &in.SheetPrice,
		"labor":     &in.LaborCost,
		"margin":    &in.MarginPercent,
	}
	for key, dst := range floats {
		if raw, ok := args[key]; ok {
			v, err := parseDecimal(raw)
			if err != nil {
				return quotes.Input{}, fmt.Errorf("%w: %s=%s", ErrInvalidArguments, key, raw)
			}
			*dst = v
		}
	}

	return in, nil
}

func requireInt(args map[string]string, key string) (int, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidArguments, key)
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%s", ErrInvalidArguments, key, raw)
	}
	return v, nil
}

func requireFloat(args map[string]string, key string) (float64, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidArguments, key)
	}
	v, err := parseDecimal(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%s", ErrInvalidArguments, key, raw)
	}
	return v, nil
}

// parseDecimal accepts both 1.5 and 1,5.
func parseDecimal(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
}

func formatQuotes(found []models.Quote) string {
	if len(found) == 0 {
		return "No quotes found."
	}
	var b strings.Builder
	for _, q := range found {
		fmt.Fprintf(&b, "#%d  %s  %s  %s  %s %.2fmm  %.2fx%.2f  total %.2f\n",
			q.ClientNumber, q.Date, q.ClientName, q.Product, q.Material, q.Thickness, q.Width, q.Height, q.TotalPrice)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStock(entries []models.StockEntry) string {
	if len(entries) == 0 {
		return "Stock is empty."
	}
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d  %-20s  %6.2fmm  %d\n", i, e.Material, e.Thickness, e.Quantity)
	}
	return strings.TrimRight(b.String(), "\n")
}
