package marketdata_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/backsim/internal/adapters/marketdata"
	"github.com/alejandrodnm/backsim/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dailyBar(ts time.Time, close float64) domain.Bar {
	return domain.Bar{
		Timestamp: ts,
		Open:      close - 1,
		High:      close + 1,
		Low:       close - 2,
		Close:     close,
		Volume:    1000,
	}
}

func TestMemory_BarsAtServesSameDayBar(t *testing.T) {
	src := marketdata.NewMemory()
	require.NoError(t, src.Add(domain.Equity(1, "SPY"), []domain.Bar{
		dailyBar(day(2024, 3, 4), 100),
		dailyBar(day(2024, 3, 5), 101),
	}))

	// consulta al cierre de sesión del mismo día
	bars, err := src.BarsAt(day(2024, 3, 4).Add(21 * time.Hour))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, domain.AssetID(1), bars[0].Asset.ID)
	assert.Equal(t, 100.0, bars[0].Bar.Close)
}

func TestMemory_BarsAtNeverServesFuture(t *testing.T) {
	src := marketdata.NewMemory()
	require.NoError(t, src.Add(domain.Equity(1, "SPY"), []domain.Bar{
		dailyBar(day(2024, 3, 5), 101),
	}))

	bars, err := src.BarsAt(day(2024, 3, 4).Add(21 * time.Hour))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestMemory_BarsAtDropsStaleBars(t *testing.T) {
	src := marketdata.NewMemory()
	require.NoError(t, src.Add(domain.Equity(1, "SPY"), []domain.Bar{
		dailyBar(day(2024, 3, 4), 100),
	}))

	// dos días después la barra del día 4 ya no es "actual"
	bars, err := src.BarsAt(day(2024, 3, 6).Add(21 * time.Hour))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestMemory_BarsAtWindowBoundaryIsExclusive(t *testing.T) {
	src := marketdata.NewMemory()
	require.NoError(t, src.Add(domain.Equity(1, "SPY"), []domain.Bar{
		dailyBar(day(2024, 3, 4), 100),
	}))

	// exactamente 24h después: fuera de ventana
	bars, err := src.BarsAt(day(2024, 3, 5))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestMemory_BarsAtAscendingAssetID(t *testing.T) {
	src := marketdata.NewMemory()
	require.NoError(t, src.Add(domain.Equity(3, "QQQ"), []domain.Bar{dailyBar(day(2024, 3, 4), 400)}))
	require.NoError(t, src.Add(domain.Equity(1, "SPY"), []domain.Bar{dailyBar(day(2024, 3, 4), 100)}))

	bars, err := src.BarsAt(day(2024, 3, 4).Add(21 * time.Hour))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, domain.AssetID(1), bars[0].Asset.ID)
	assert.Equal(t, domain.AssetID(3), bars[1].Asset.ID)
}

func TestMemory_AddSortsOutOfOrderBars(t *testing.T) {
	src := marketdata.NewMemory()
	require.NoError(t, src.Add(domain.Equity(1, "SPY"), []domain.Bar{
		dailyBar(day(2024, 3, 6), 102),
		dailyBar(day(2024, 3, 4), 100),
		dailyBar(day(2024, 3, 5), 101),
	}))

	bars, err := src.BarsAt(day(2024, 3, 5).Add(21 * time.Hour))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 101.0, bars[0].Bar.Close)

	history := src.History(1, day(2024, 3, 6).Add(21*time.Hour), 10)
	require.Len(t, history, 3)
	assert.Equal(t, 100.0, history[0].Close)
	assert.Equal(t, 102.0, history[2].Close)
}

func TestMemory_AddRejectsDuplicateID(t *testing.T) {
	src := marketdata.NewMemory()
	require.NoError(t, src.Add(domain.Equity(1, "SPY"), nil))

	err := src.Add(domain.Equity(1, "QQQ"), nil)
	assert.ErrorContains(t, err, "duplicate asset id")
}

func TestMemory_AddRejectsInvalidBar(t *testing.T) {
	src := marketdata.NewMemory()
	bad := dailyBar(day(2024, 3, 4), 100)
	bad.High = 50 // por debajo de open/close

	err := src.Add(domain.Equity(1, "SPY"), []domain.Bar{bad})
	assert.ErrorContains(t, err, "SPY bar 0")
}

func TestMemory_AddRejectsNonPositiveID(t *testing.T) {
	src := marketdata.NewMemory()
	err := src.Add(domain.Asset{ID: 0, Symbol: "SPY"}, nil)
	assert.Error(t, err)
}

func TestMemory_DateRangeSpansAllAssets(t *testing.T) {
	src := marketdata.NewMemory()
	require.NoError(t, src.Add(domain.Equity(1, "SPY"), []domain.Bar{
		dailyBar(day(2024, 3, 5), 100),
		dailyBar(day(2024, 3, 8), 101),
	}))
	require.NoError(t, src.Add(domain.Equity(2, "QQQ"), []domain.Bar{
		dailyBar(day(2024, 3, 4), 400),
		dailyBar(day(2024, 3, 7), 401),
	}))

	first, last := src.DateRange()
	assert.Equal(t, day(2024, 3, 4), first)
	assert.Equal(t, day(2024, 3, 8), last)
}

func TestMemory_KnownAssetsReturnsCopy(t *testing.T) {
	src := marketdata.NewMemory()
	require.NoError(t, src.Add(domain.Equity(1, "SPY"), nil))

	assets := src.KnownAssets()
	assets[0].Symbol = "MUTATED"
	assert.Equal(t, "SPY", src.KnownAssets()[0].Symbol)
}

func TestMemory_HistoryReturnsTail(t *testing.T) {
	src := marketdata.NewMemory()
	require.NoError(t, src.Add(domain.Equity(1, "SPY"), []domain.Bar{
		dailyBar(day(2024, 3, 4), 100),
		dailyBar(day(2024, 3, 5), 101),
		dailyBar(day(2024, 3, 6), 102),
	}))

	tail := src.History(1, day(2024, 3, 6).Add(21*time.Hour), 2)
	require.Len(t, tail, 2)
	assert.Equal(t, 101.0, tail[0].Close)
	assert.Equal(t, 102.0, tail[1].Close)

	// sin barras posteriores al instante pedido
	upTo := src.History(1, day(2024, 3, 5).Add(21*time.Hour), 10)
	require.Len(t, upTo, 2)
	assert.Equal(t, 101.0, upTo[1].Close)
}
