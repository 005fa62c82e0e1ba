package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/alejandrodnm/backsim/internal/ports"
	"github.com/alejandrodnm/backsim/internal/strategy"
)

// DefaultHistoryLen is the per-asset lookback window when none is configured.
const DefaultHistoryLen = 30

// Config holds the engine settings for one or more runs.
type Config struct {
	// StartingCash is the initial balance of every run. Finite, > 0.
	StartingCash float64
	// HistoryLen bounds the per-asset bar window the strategy can see.
	HistoryLen int
	// SameBarFills lets orders submitted during a callback fill against
	// that same step's bar. With false they wait for the next step.
	SameBarFills bool
}

// Engine replays sessions in strict chronological order against a
// strategy: one step per session, callback, order resolution, ledger
// update, mark to market, value sample. Single writer, no locking; a
// concurrent mode would need one Engine per run.
type Engine struct {
	cfg    Config
	data   ports.DataSource
	cal    ports.Calendar
	broker *domain.Broker
}

// New validates the config and builds an engine. A nil broker gets the
// frictionless default (no slippage, no commission).
func New(cfg Config, data ports.DataSource, cal ports.Calendar, broker *domain.Broker) (*Engine, error) {
	if math.IsNaN(cfg.StartingCash) || math.IsInf(cfg.StartingCash, 0) || cfg.StartingCash <= 0 {
		return nil, fmt.Errorf("engine.New: starting cash %v must be finite and positive", cfg.StartingCash)
	}
	if cfg.HistoryLen == 0 {
		cfg.HistoryLen = DefaultHistoryLen
	}
	if cfg.HistoryLen < 1 {
		return nil, fmt.Errorf("engine.New: history length %d must be at least 1", cfg.HistoryLen)
	}
	if broker == nil {
		broker = domain.NewBroker(nil, nil)
	}
	return &Engine{cfg: cfg, data: data, cal: cal, broker: broker}, nil
}

// Run replays [start, end] against the strategy and returns the run
// record. Fatal errors (strategy callback, execution policy, calendar)
// abort the run and come back alongside the partial record accumulated so
// far; a cancelled ctx stops at the next step boundary and marks the
// record CANCELLED with no error.
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy, start, end time.Time) (*domain.RunRecord, error) {
	ledger := domain.NewLedger(e.cfg.StartingCash)
	reg := domain.NewRegistry()
	window := newBarWindow(e.cfg.HistoryLen)
	rctx := newRunContext(ledger, reg, window, e.data.KnownAssets())

	rec := &domain.RunRecord{
		ID:           uuid.New().String(),
		Strategy:     strat.Name(),
		Start:        start,
		End:          end,
		StartingCash: e.cfg.StartingCash,
		StartedAt:    time.Now(),
	}

	slog.Info("engine: run started",
		"run", rec.ID,
		"strategy", rec.Strategy,
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
		"cash", fmt.Sprintf("$%.2f", e.cfg.StartingCash),
	)

	if err := strat.Initialize(rctx); err != nil {
		return finish(rec, ledger, reg, domain.RunFailed,
			fmt.Errorf("engine: initialize: %w: %w", domain.ErrStrategy, err))
	}

	step := 0
	for day := dateOnly(start); !day.After(dateOnly(end)); day = day.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			slog.Info("engine: run cancelled", "run", rec.ID, "steps", step)
			return finish(rec, ledger, reg, domain.RunCancelled, nil)
		default:
		}

		trading, err := e.cal.IsTradingDay(day)
		if err != nil {
			return finish(rec, ledger, reg, domain.RunFailed,
				fmt.Errorf("engine: calendar at %s: %w", day.Format(time.DateOnly), err))
		}
		if !trading {
			continue
		}
		sess, err := e.cal.SessionTimes(day)
		if err != nil {
			return finish(rec, ledger, reg, domain.RunFailed,
				fmt.Errorf("engine: session times at %s: %w", day.Format(time.DateOnly), err))
		}
		ts := sess.Close

		bars, err := e.data.BarsAt(ts)
		if err != nil {
			return finish(rec, ledger, reg, domain.RunFailed,
				fmt.Errorf("engine: bars at %s: %w", ts, err))
		}
		window.advance(ts, bars)
		rctx.now, rctx.step = ts, step

		if err := strat.BeforeTradingStart(rctx, window); err != nil {
			return finish(rec, ledger, reg, domain.RunFailed,
				fmt.Errorf("engine: before_trading_start at %s: %w: %w", ts, domain.ErrStrategy, err))
		}
		if err := strat.HandleData(rctx, window); err != nil {
			return finish(rec, ledger, reg, domain.RunFailed,
				fmt.Errorf("engine: handle_data at %s: %w: %w", ts, domain.ErrStrategy, err))
		}

		if err := e.resolveStep(ledger, reg, window, ts, step); err != nil {
			return finish(rec, ledger, reg, domain.RunFailed, err)
		}

		ledger.MarkToMarket(window.closePrices())
		rec.Samples = append(rec.Samples, domain.ValueSample{
			Timestamp: ts,
			Value:     ledger.PortfolioValue(),
		})
		step++
	}

	rec, _ = finish(rec, ledger, reg, domain.RunCompleted, nil)
	if err := strat.Analyze(rctx, rec); err != nil {
		rec.Status = domain.RunFailed
		err = fmt.Errorf("engine: analyze: %w: %w", domain.ErrStrategy, err)
		rec.ErrMsg = err.Error()
		return rec, err
	}

	slog.Info("engine: run finished",
		"run", rec.ID,
		"steps", step,
		"orders", rec.Orders,
		"fills", len(rec.Fills),
		"value", fmt.Sprintf("$%.2f", rec.FinalValue),
		"return", fmt.Sprintf("%.2f%%", rec.Return()*100),
	)
	return rec, nil
}

// resolveStep feeds the pending orders to the broker and applies the
// resulting fills in resolver order. Per-order failures reject that order
// and the step continues; anything else aborts the run.
func (e *Engine) resolveStep(ledger *domain.Ledger, reg *domain.Registry, window *barWindow, ts time.Time, step int) error {
	pending := reg.Open()
	if !e.cfg.SameBarFills {
		held := pending[:0]
		for _, o := range pending {
			if o.SubmittedStep < step {
				held = append(held, o)
			}
		}
		pending = held
	}

	fills, rejected, err := e.broker.ResolveAll(pending, window.current, ts)
	if err != nil {
		return fmt.Errorf("engine: resolve at %s: %w", ts, err)
	}

	for _, oe := range rejected {
		if rerr := reg.Reject(oe.OrderID); rerr != nil {
			return fmt.Errorf("engine: rejecting order %d: %w", oe.OrderID, rerr)
		}
		slog.Warn("engine: order rejected", "order", oe.OrderID, "err", oe.Err)
	}

	for _, f := range fills {
		if err := ledger.ApplyFill(f); err != nil {
			if errors.Is(err, domain.ErrInsufficientCash) {
				if rerr := reg.Reject(f.OrderID); rerr != nil {
					return fmt.Errorf("engine: rejecting order %d: %w", f.OrderID, rerr)
				}
				slog.Warn("engine: fill rejected, insufficient cash",
					"order", f.OrderID,
					"cost", fmt.Sprintf("$%.2f", -f.CashDelta()),
					"cash", fmt.Sprintf("$%.2f", ledger.Cash()),
				)
				continue
			}
			return fmt.Errorf("engine: applying fill for order %d: %w", f.OrderID, err)
		}
		if err := reg.RecordFill(f); err != nil {
			return fmt.Errorf("engine: recording fill for order %d: %w", f.OrderID, err)
		}
	}
	return nil
}

// finish snapshots the final state into the record. The cause, when there
// is one, travels both in the record (ErrMsg, for the archive) and as the
// returned error.
func finish(rec *domain.RunRecord, ledger *domain.Ledger, reg *domain.Registry, status domain.RunStatus, cause error) (*domain.RunRecord, error) {
	rec.Status = status
	rec.FinalCash = ledger.Cash()
	rec.FinalValue = ledger.PortfolioValue()
	rec.Fills = ledger.Fills()
	rec.Positions = ledger.Positions()
	rec.Orders = reg.Count()
	rec.FinishedAt = time.Now()
	if cause != nil {
		rec.ErrMsg = cause.Error()
	}
	return rec, cause
}

// dateOnly drops the time of day, keeping the location.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
