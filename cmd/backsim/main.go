package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/backsim/config"
)

// options agrupa los flags de CLI que afinan una ejecución.
type options struct {
	strategy string
	symbol   string
	fast     int
	slow     int
	start    string
	end      string
	table    bool
	dryRun   bool
	list     int
	show     string
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")

	var opts options
	flag.StringVar(&opts.strategy, "strategy", "buy_and_hold", "strategy name (see -list-strategies)")
	flag.StringVar(&opts.symbol, "symbol", "", "symbol the strategy trades (default: first asset in the data set)")
	flag.IntVar(&opts.fast, "fast", 0, "fast window for dual_moving_average")
	flag.IntVar(&opts.slow, "slow", 0, "slow window for dual_moving_average")
	flag.StringVar(&opts.start, "start", "", "simulation start YYYY-MM-DD (overrides config)")
	flag.StringVar(&opts.end, "end", "", "simulation end YYYY-MM-DD (overrides config)")
	flag.BoolVar(&opts.table, "table", false, "print full report with fills and positions (default: compact 1-line)")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "skip archiving the run to the database")
	flag.IntVar(&opts.list, "list", 0, "print the N most recent archived runs and exit")
	flag.StringVar(&opts.show, "show", "", "print one archived run by id and exit")
	listStrategies := flag.Bool("list-strategies", false, "print registered strategy names and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if *listStrategies {
		printStrategies()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case opts.list > 0:
		err = listRuns(ctx, cfg, opts.list)
	case opts.show != "":
		err = showRun(ctx, cfg, opts.show)
	default:
		err = runBacktest(ctx, cfg, opts)
	}
	if err != nil {
		slog.Error("backsim exited with error", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
