package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/backsim/config"
	"github.com/alejandrodnm/backsim/internal/adapters/calendar"
	"github.com/alejandrodnm/backsim/internal/adapters/marketdata"
	"github.com/alejandrodnm/backsim/internal/adapters/notify"
	"github.com/alejandrodnm/backsim/internal/adapters/storage"
	"github.com/alejandrodnm/backsim/internal/application/engine"
	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/alejandrodnm/backsim/internal/ports"
	"github.com/alejandrodnm/backsim/internal/strategy"
)

// runBacktest cablea fuente de datos, calendario, broker y estrategia, y
// ejecuta una simulación completa. El registro resultante se imprime y se
// archiva incluso si el run terminó cancelado o con error.
func runBacktest(ctx context.Context, cfg *config.Config, opts options) error {
	if opts.start != "" {
		cfg.Data.Start = opts.start
	}
	if opts.end != "" {
		cfg.Data.End = opts.end
	}
	start, err := cfg.StartDate()
	if err != nil {
		return err
	}
	end, err := cfg.EndDate()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("period end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	data, err := buildDataSource(ctx, cfg, start, end)
	if err != nil {
		return err
	}
	assets := data.KnownAssets()
	if len(assets) == 0 {
		return fmt.Errorf("data source has no assets")
	}

	symbol := opts.symbol
	if symbol == "" {
		symbol = assets[0].Symbol
	}
	strat, err := buildStrategy(opts, symbol)
	if err != nil {
		return err
	}

	cal, err := buildCalendar(cfg.Calendar.Name)
	if err != nil {
		return err
	}
	broker, err := buildBroker(cfg.Broker)
	if err != nil {
		return err
	}

	slog.Info("backsim starting",
		"strategy", strat.Name(),
		"symbol", symbol,
		"source", cfg.Data.Source,
		"assets", len(assets),
		"period", fmt.Sprintf("%s→%s", start.Format("2006-01-02"), end.Format("2006-01-02")),
		"calendar", cfg.Calendar.Name,
		"same_bar_fills", cfg.SameBarFills(),
	)

	var store *storage.SQLiteStore
	if !opts.dryRun {
		store, err = storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	eng, err := engine.New(engine.Config{
		StartingCash: cfg.Engine.StartingCash,
		HistoryLen:   cfg.Engine.HistoryLen,
		SameBarFills: cfg.SameBarFills(),
	}, data, cal, broker)
	if err != nil {
		return err
	}

	rec, runErr := eng.Run(ctx, strat, start, end)
	if rec != nil {
		symbols := make(map[domain.AssetID]string, len(assets))
		for _, a := range assets {
			symbols[a.ID] = a.Symbol
		}
		notifier := notify.NewConsole(opts.table, symbols)
		if err := notifier.Notify(ctx, rec); err != nil {
			slog.Warn("notifier error", "err", err)
		}
		if store != nil {
			if err := store.SaveRun(ctx, rec); err != nil {
				slog.Warn("failed to archive run", "err", err, "run", rec.ID)
			} else {
				slog.Info("run archived", "run", rec.ID, "dsn", cfg.Storage.DSN)
			}
		}
	}
	return runErr
}

// listRuns imprime las últimas simulaciones archivadas.
func listRuns(ctx context.Context, cfg *config.Config, limit int) error {
	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	notify.NewConsole(false, nil).PrintRuns(recs)
	return nil
}

// showRun imprime el informe completo de una simulación archivada.
func showRun(ctx context.Context, cfg *config.Config, id string) error {
	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	return notify.NewConsole(true, nil).Notify(ctx, rec)
}

func printStrategies() {
	reg := buildRegistry("", 0, 0)
	for _, name := range reg.Names() {
		fmt.Println(name)
	}
}

// buildRegistry registra las estrategias de referencia con los parámetros
// dados.
func buildRegistry(symbol string, fast, slow int) strategy.Registry {
	reg := strategy.NewRegistry()
	reg.Register(strategy.NewBuyAndHold(symbol))
	reg.Register(strategy.NewDualMovingAverage(strategy.DualMovingAverageConfig{
		Symbol: symbol,
		Fast:   fast,
		Slow:   slow,
	}))
	return reg
}

func buildStrategy(opts options, symbol string) (strategy.Strategy, error) {
	reg := buildRegistry(symbol, opts.fast, opts.slow)
	strat, ok := reg.Get(opts.strategy)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %s)",
			opts.strategy, strings.Join(reg.Names(), ", "))
	}
	return strat, nil
}

func buildDataSource(ctx context.Context, cfg *config.Config, start, end time.Time) (ports.DataSource, error) {
	switch cfg.Data.Source {
	case "csv":
		return marketdata.LoadDir(cfg.Data.CSVDir)
	case "stooq":
		if len(cfg.Data.Symbols) == 0 {
			return nil, fmt.Errorf("data.symbols is required with the stooq source")
		}
		client := marketdata.NewStooq(cfg.Data.StooqBase)
		return client.FetchSymbols(ctx, cfg.Data.Symbols, start, end)
	default:
		return nil, fmt.Errorf("unknown data source %q (csv | stooq)", cfg.Data.Source)
	}
}

func buildCalendar(name string) (ports.Calendar, error) {
	switch name {
	case "nyse":
		return calendar.NewNYSE()
	case "weekday":
		return calendar.NewWeekday(), nil
	default:
		return nil, fmt.Errorf("unknown calendar %q (weekday | nyse)", name)
	}
}

func buildBroker(cfg config.BrokerConfig) (*domain.Broker, error) {
	var slip domain.SlippageModel
	switch cfg.Slippage.Model {
	case "", "none":
	case "fixed":
		slip = domain.FixedSlippage{Offset: cfg.Slippage.Offset}
	case "volume_share":
		slip = domain.VolumeShareSlippage{
			PriceImpact: cfg.Slippage.PriceImpact,
			VolumeLimit: cfg.Slippage.VolumeLimit,
		}
	default:
		return nil, fmt.Errorf("unknown slippage model %q (none | fixed | volume_share)", cfg.Slippage.Model)
	}

	var comm domain.CommissionModel
	switch cfg.Commission.Model {
	case "", "none":
	case "per_share":
		comm = domain.PerShareCommission{
			CostPerShare: cfg.Commission.PerShare,
			Minimum:      cfg.Commission.Minimum,
		}
	case "per_trade":
		comm = domain.PerTradeCommission{Cost: cfg.Commission.PerTrade}
	default:
		return nil, fmt.Errorf("unknown commission model %q (none | per_share | per_trade)", cfg.Commission.Model)
	}

	return domain.NewBroker(slip, comm), nil
}
