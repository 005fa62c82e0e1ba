package strategy

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/backsim/internal/domain"
)

const dualMovingAverageName = "dual_moving_average"

// DualMovingAverage compara dos medias móviles del cierre: entra con toda
// la cartera cuando la rápida cruza por encima de la lenta y sale cuando
// cruza por debajo.
type DualMovingAverage struct {
	Base
	symbol string
	fast   int
	slow   int
}

// DualMovingAverageConfig configura la estrategia.
type DualMovingAverageConfig struct {
	Symbol string
	Fast   int
	Slow   int
}

// NewDualMovingAverage crea la estrategia con la configuración dada.
func NewDualMovingAverage(cfg DualMovingAverageConfig) *DualMovingAverage {
	if cfg.Fast <= 0 {
		cfg.Fast = 10
	}
	if cfg.Slow <= 0 {
		cfg.Slow = 30
	}
	return &DualMovingAverage{
		symbol: cfg.Symbol,
		fast:   cfg.Fast,
		slow:   cfg.Slow,
	}
}

// Name implementa Strategy.
func (s *DualMovingAverage) Name() string {
	return dualMovingAverageName
}

// Initialize implementa Strategy.
func (s *DualMovingAverage) Initialize(Context) error {
	if s.symbol == "" {
		return fmt.Errorf("crossover: empty symbol")
	}
	if s.fast >= s.slow {
		return fmt.Errorf("crossover: fast window %d must be shorter than slow %d", s.fast, s.slow)
	}
	return nil
}

// HandleData implementa Strategy. Decide cada jornada con la ventana de
// cierres disponible; sin ventana completa no se opera.
func (s *DualMovingAverage) HandleData(ctx Context, data Data) error {
	asset, ok := findAsset(data, s.symbol)
	if !ok {
		return nil
	}

	closes := data.Closes(asset.ID, s.slow)
	if len(closes) < s.slow {
		return nil
	}

	fast := mean(closes[len(closes)-s.fast:])
	slow := mean(closes)

	pos, held := ctx.Position(asset.ID)
	invested := held && pos.Quantity != 0

	switch {
	case fast > slow && !invested:
		id, err := ctx.OrderTargetPercent(asset.ID, 1.0)
		if err != nil {
			if domain.RejectsOrder(err) {
				return nil
			}
			return err
		}
		slog.Info("crossover: golden cross, entering",
			"symbol", s.symbol, "fast", fast, "slow", slow, "order", id)

	case fast < slow && invested:
		id, err := ctx.OrderTarget(asset.ID, 0)
		if err != nil {
			if domain.RejectsOrder(err) {
				return nil
			}
			return err
		}
		slog.Info("crossover: death cross, exiting",
			"symbol", s.symbol, "fast", fast, "slow", slow, "order", id)
	}
	return nil
}

// mean es la media aritmética simple. Con slice vacío devuelve 0.
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
