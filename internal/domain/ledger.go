package domain

import (
	"fmt"
	"sort"
)

// Ledger owns the cash balance, the per-asset positions and the append-only
// fills journal of one run. It has exactly one writer: the engine's current
// step. There is no locking because there is nothing concurrent to guard.
type Ledger struct {
	startingCash float64
	cash         float64
	positions    map[AssetID]*Position
	fills        []Fill
}

// NewLedger crea un ledger con la caja inicial dada.
func NewLedger(startingCash float64) *Ledger {
	return &Ledger{
		startingCash: startingCash,
		cash:         startingCash,
		positions:    make(map[AssetID]*Position),
	}
}

// ApplyFill muta caja y posición con un fill resuelto por el broker.
// Si el fill dejaría la caja en negativo devuelve ErrInsufficientCash sin
// mutar nada: la orden correspondiente debe rechazarse y el fill descartarse.
func (l *Ledger) ApplyFill(f Fill) error {
	next := l.cash + f.CashDelta()
	if next < 0 {
		return fmt.Errorf("ledger.ApplyFill: order %d needs $%.2f, have $%.2f: %w",
			f.OrderID, -f.CashDelta(), l.cash, ErrInsufficientCash)
	}

	l.cash = next

	pos, ok := l.positions[f.Asset]
	if !ok {
		pos = &Position{Asset: f.Asset}
		l.positions[f.Asset] = pos
	}
	pos.apply(f.Quantity, f.Price)
	pos.LastPrice = f.Price

	l.fills = append(l.fills, f)
	return nil
}

// MarkToMarket actualiza la última marca de las posiciones con precio en este
// paso. Los activos sin precio conservan su marca anterior, nunca es error.
func (l *Ledger) MarkToMarket(prices map[AssetID]float64) {
	for id, pos := range l.positions {
		if px, ok := prices[id]; ok {
			pos.LastPrice = px
		}
	}
}

// Position returns a copy of the asset's position. The second result is
// false only for assets no fill ever touched; a closed position still
// reports true with quantity 0.
func (l *Ledger) Position(asset AssetID) (Position, bool) {
	pos, ok := l.positions[asset]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns copies of every position, ascending asset id.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, id := range l.sortedAssets() {
		out = append(out, *l.positions[id])
	}
	return out
}

// Cash devuelve la caja actual.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// StartingCash devuelve la caja inicial del run.
func (l *Ledger) StartingCash() float64 {
	return l.startingCash
}

// PositionsValue devuelve Σ quantity × mark, en orden ascendente de activo
// para que la suma flotante sea reproducible entre runs.
func (l *Ledger) PositionsValue() float64 {
	total := 0.0
	for _, id := range l.sortedAssets() {
		total += l.positions[id].MarketValue()
	}
	return total
}

// PortfolioValue devuelve cash + valor de mercado de las posiciones.
func (l *Ledger) PortfolioValue() float64 {
	return l.cash + l.PositionsValue()
}

// RealizedPnL devuelve el P&L realizado acumulado de todas las posiciones.
func (l *Ledger) RealizedPnL() float64 {
	total := 0.0
	for _, id := range l.sortedAssets() {
		total += l.positions[id].Realized
	}
	return total
}

// Fills returns a copy of the append-only journal, in application order.
func (l *Ledger) Fills() []Fill {
	out := make([]Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

func (l *Ledger) sortedAssets() []AssetID {
	ids := make([]AssetID, 0, len(l.positions))
	for id := range l.positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
