package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/mamadbah2/chapaquote/internal/config"
	"github.com/mamadbah2/chapaquote/internal/domain/models"
	"github.com/mamadbah2/chapaquote/internal/repository/quotefile"
	"github.com/mamadbah2/chapaquote/internal/repository/stockfile"
	commandsvc "github.com/mamadbah2/chapaquote/internal/service/commands"
	"github.com/mamadbah2/chapaquote/internal/service/pricing"
	quotesvc "github.com/mamadbah2/chapaquote/internal/service/quotes"
	reportingsvc "github.com/mamadbah2/chapaquote/internal/service/reporting"
	"github.com/mamadbah2/chapaquote/internal/service/stock"
	"github.com/mamadbah2/chapaquote/pkg/logger"
)

const usage = `usage: quotes <command> [key=value ...]

commands:
  create       client= number= date= product= material= thickness= width= height= price= labor= margin=
  modify       id= plus any create field
  delete       number=
  list
  find-client  client=
  find-number  number=
  find-month   month= year=
  summary
  monthly      year=
  stock
  stock-edit   row= thickness= quantity=  |  rowN.thickness= rowN.quantity= ...`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dispatcher, err := build(ctx, cfg, baseLogger)
	if err != nil {
		baseLogger.Error("failed to initialise", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	cmd := models.ParseCommand(os.Args[1:])
	if cmd.Type == models.CommandUnknown {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	reply, err := dispatcher.HandleCommand(ctx, cmd)
	if err != nil {
		baseLogger.Debug("command failed", zap.String("command", string(cmd.Type)), zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		_ = baseLogger.Sync()
		os.Exit(1)
	}
	fmt.Println(reply)
}

func build(ctx context.Context, cfg *config.Config, baseLogger *zap.Logger) (commandsvc.Dispatcher, error) {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	seed := models.DefaultStock()
	if cfg.Storage.StockSeedFile != "" {
		loaded, err := stockfile.LoadSeed(cfg.Storage.StockSeedFile)
		if err != nil {
			return nil, err
		}
		seed = loaded
	}

	quoteRepo := quotefile.NewFileRepository(cfg.QuotesPath(), logger.Named(baseLogger, "repo.quotes"))
	stockRepo := stockfile.NewFileRepository(cfg.StockPath(), logger.Named(baseLogger, "repo.stock"))

	ledger := stock.NewLedger(stockRepo, seed, logger.Named(baseLogger, "svc.stock"))
	if err := ledger.Load(ctx); err != nil {
		return nil, err
	}

	engine := pricing.NewEngine(pricing.Panel{Width: cfg.Pricing.PanelWidth, Height: cfg.Pricing.PanelHeight})
	reportingSvc := reportingsvc.NewService(quoteRepo, logger.Named(baseLogger, "svc.reporting"))
	quoteSvc := quotesvc.NewService(quoteRepo, ledger, engine, reportingSvc,
		quotesvc.YearRange{Min: cfg.Quotes.MinYear, Max: cfg.Quotes.MaxYear}, logger.Named(baseLogger, "svc.quotes"))

	return commandsvc.NewService(quoteSvc, logger.Named(baseLogger, "svc.commands")), nil
}
