package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillAt(order OrderID, asset AssetID, qty, price, commission float64) Fill {
	return Fill{
		OrderID:    order,
		Asset:      asset,
		Quantity:   qty,
		Price:      price,
		Commission: commission,
		Timestamp:  time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
	}
}

func TestLedger_BuyReducesCashExactly(t *testing.T) {
	l := NewLedger(100_000)
	require.NoError(t, l.ApplyFill(fillAt(1, 1, 100, 100, 0)))

	assert.Equal(t, 90_000.0, l.Cash())
	pos, ok := l.Position(1)
	require.True(t, ok)
	assert.Equal(t, 100.0, pos.Quantity)
	assert.Equal(t, 100.0, pos.CostBasis)
}

func TestLedger_CommissionAlwaysReducesNet(t *testing.T) {
	l := NewLedger(10_000)
	require.NoError(t, l.ApplyFill(fillAt(1, 1, 10, 100, 5)))
	// compra: 10×100 + 5 de comisión
	assert.Equal(t, 10_000.0-1_005.0, l.Cash())

	require.NoError(t, l.ApplyFill(fillAt(2, 1, -10, 100, 5)))
	// venta: +1000 − 5 → la comisión se paga en ambos sentidos
	assert.Equal(t, 10_000.0-10.0, l.Cash())
}

func TestLedger_WeightedAverageBasisOnIncrease(t *testing.T) {
	l := NewLedger(100_000)
	require.NoError(t, l.ApplyFill(fillAt(1, 1, 100, 100, 0)))
	require.NoError(t, l.ApplyFill(fillAt(2, 1, 100, 110, 0)))

	pos, _ := l.Position(1)
	assert.Equal(t, 200.0, pos.Quantity)
	// (100×100 + 110×100) / 200 = 105
	assert.Equal(t, 105.0, pos.CostBasis)
}

func TestLedger_ReductionBooksRealizedAndKeepsBasis(t *testing.T) {
	l := NewLedger(100_000)
	require.NoError(t, l.ApplyFill(fillAt(1, 1, 100, 100, 0)))
	require.NoError(t, l.ApplyFill(fillAt(2, 1, -40, 110, 0)))

	pos, _ := l.Position(1)
	assert.Equal(t, 60.0, pos.Quantity)
	assert.Equal(t, 100.0, pos.CostBasis)
	// (110 − 100) × 40
	assert.Equal(t, 400.0, pos.Realized)
}

func TestLedger_ShortCoverRealized(t *testing.T) {
	l := NewLedger(100_000)
	require.NoError(t, l.ApplyFill(fillAt(1, 1, -100, 100, 0)))

	pos, _ := l.Position(1)
	assert.Equal(t, -100.0, pos.Quantity)
	assert.Equal(t, 100.0, pos.CostBasis)

	require.NoError(t, l.ApplyFill(fillAt(2, 1, 100, 90, 0)))
	pos, _ = l.Position(1)
	assert.True(t, pos.IsFlat())
	// corto a 100, recompra a 90 → +1000
	assert.Equal(t, 1_000.0, pos.Realized)
}

func TestLedger_SignCrossingSplitsCloseAndReopen(t *testing.T) {
	l := NewLedger(100_000)
	require.NoError(t, l.ApplyFill(fillAt(1, 1, 100, 100, 0)))
	require.NoError(t, l.ApplyFill(fillAt(2, 1, -150, 110, 0)))

	pos, _ := l.Position(1)
	assert.Equal(t, -50.0, pos.Quantity)
	assert.Equal(t, 110.0, pos.CostBasis) // el resto abre corto a 110
	assert.Equal(t, 1_000.0, pos.Realized)
}

func TestLedger_FlatPositionStaysDistinctFromNeverTraded(t *testing.T) {
	l := NewLedger(100_000)
	require.NoError(t, l.ApplyFill(fillAt(1, 1, 50, 100, 0)))
	require.NoError(t, l.ApplyFill(fillAt(2, 1, -50, 105, 0)))

	pos, ok := l.Position(1)
	require.True(t, ok, "traded-then-closed must still report a position")
	assert.True(t, pos.IsFlat())
	assert.Equal(t, 250.0, pos.Realized)

	_, ok = l.Position(99)
	assert.False(t, ok, "never-traded asset reports no position")
}

func TestLedger_InsufficientCashRejectsWithoutMutation(t *testing.T) {
	l := NewLedger(1_000)
	err := l.ApplyFill(fillAt(1, 1, 100, 100, 0))
	require.ErrorIs(t, err, ErrInsufficientCash)

	assert.Equal(t, 1_000.0, l.Cash())
	_, ok := l.Position(1)
	assert.False(t, ok)
	assert.Empty(t, l.Fills())
}

func TestLedger_InsufficientCashOnCommissionOnly(t *testing.T) {
	// venta con comisión mayor que el producto → caja negativa → rechazo
	l := NewLedger(0)
	require.NoError(t, l.ApplyFill(fillAt(1, 1, -10, 1, 0))) // +10 de caja
	err := l.ApplyFill(fillAt(2, 1, -1, 1, 20))
	require.ErrorIs(t, err, ErrInsufficientCash)
	assert.Equal(t, 10.0, l.Cash())
}

func TestLedger_MarkToMarketKeepsLastMarkWhenAbsent(t *testing.T) {
	l := NewLedger(100_000)
	require.NoError(t, l.ApplyFill(fillAt(1, 1, 100, 100, 0)))
	require.NoError(t, l.ApplyFill(fillAt(2, 2, 10, 50, 0)))

	l.MarkToMarket(map[AssetID]float64{1: 110})

	a, _ := l.Position(1)
	b, _ := l.Position(2)
	assert.Equal(t, 110.0, a.LastPrice)
	assert.Equal(t, 50.0, b.LastPrice, "asset without price keeps its last mark")

	// 100k − 10k − 500 caja, 100×110 + 10×50 posiciones
	assert.Equal(t, 89_500.0+11_000.0+500.0, l.PortfolioValue())
}

// --- propiedades de consistencia ---

func TestLedger_ConservationOverFillHistory(t *testing.T) {
	l := NewLedger(50_000)
	fills := []Fill{
		fillAt(1, 1, 100, 100, 10),
		fillAt(2, 2, -50, 40, 2.5),
		fillAt(3, 1, -30, 105, 1),
		fillAt(4, 3, 200, 12.5, 0.75),
		fillAt(5, 2, 50, 38, 2.5),
	}
	for _, f := range fills {
		require.NoError(t, l.ApplyFill(f))
	}

	// cash_t = starting − Σ(notional con signo) − Σ(comisiones), exacto
	expected := l.StartingCash()
	for _, f := range l.Fills() {
		expected += f.CashDelta()
	}
	assert.Equal(t, expected, l.Cash())
}

func TestLedger_NoDriftBetweenFillsAndPositions(t *testing.T) {
	l := NewLedger(50_000)
	fills := []Fill{
		fillAt(1, 1, 100, 100, 0),
		fillAt(2, 1, -40, 101, 0),
		fillAt(3, 1, 25, 99, 0),
		fillAt(4, 2, -10, 20, 0),
	}
	for _, f := range fills {
		require.NoError(t, l.ApplyFill(f))
	}

	sums := map[AssetID]float64{}
	for _, f := range l.Fills() {
		sums[f.Asset] += f.Quantity
	}
	for _, pos := range l.Positions() {
		assert.Equal(t, sums[pos.Asset], pos.Quantity, "asset %d", pos.Asset)
	}
}

func TestLedger_PositionsAscendingAssetID(t *testing.T) {
	l := NewLedger(100_000)
	require.NoError(t, l.ApplyFill(fillAt(1, 7, 1, 10, 0)))
	require.NoError(t, l.ApplyFill(fillAt(2, 2, 1, 10, 0)))
	require.NoError(t, l.ApplyFill(fillAt(3, 5, 1, 10, 0)))

	ids := []AssetID{}
	for _, p := range l.Positions() {
		ids = append(ids, p.Asset)
	}
	assert.Equal(t, []AssetID{2, 5, 7}, ids)
}

func TestLedger_PositionReturnsCopy(t *testing.T) {
	l := NewLedger(100_000)
	require.NoError(t, l.ApplyFill(fillAt(1, 1, 10, 100, 0)))

	pos, _ := l.Position(1)
	pos.Quantity = 9999

	again, _ := l.Position(1)
	assert.Equal(t, 10.0, again.Quantity)
}
