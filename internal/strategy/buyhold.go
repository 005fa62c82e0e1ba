package strategy

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/backsim/internal/domain"
)

const buyAndHoldName = "buy_and_hold"

const investedKey = "buyhold.invested"

// BuyAndHold invierte toda la cartera en un activo en la primera jornada
// con datos y no vuelve a tocarla.
type BuyAndHold struct {
	Base
	symbol string
}

// NewBuyAndHold crea la estrategia para el símbolo dado.
func NewBuyAndHold(symbol string) *BuyAndHold {
	return &BuyAndHold{symbol: symbol}
}

// Name implementa Strategy.
func (s *BuyAndHold) Name() string {
	return buyAndHoldName
}

// Initialize implementa Strategy.
func (s *BuyAndHold) Initialize(Context) error {
	if s.symbol == "" {
		return fmt.Errorf("buyhold: empty symbol")
	}
	return nil
}

// HandleData implementa Strategy. Una sola compra al primer cierre
// disponible; después la posición se mantiene hasta el final.
func (s *BuyAndHold) HandleData(ctx Context, data Data) error {
	if _, ok := ctx.Get(investedKey); ok {
		return nil
	}

	asset, ok := findAsset(data, s.symbol)
	if !ok {
		return nil
	}

	id, err := ctx.OrderTargetPercent(asset.ID, 1.0)
	switch {
	case err == nil:
		ctx.Set(investedKey, true)
		slog.Info("buyhold: invested", "symbol", s.symbol, "order", id)
		return nil
	case domain.RejectsOrder(err):
		// sin datos o sin fondos todavía, se reintenta la próxima jornada
		return nil
	default:
		return err
	}
}

// findAsset busca un símbolo entre los activos con barra en este paso.
func findAsset(data Data, symbol string) (domain.Asset, bool) {
	for _, a := range data.Assets() {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return domain.Asset{}, false
}
