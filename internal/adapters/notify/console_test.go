package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/backsim/internal/adapters/notify"
	"github.com/alejandrodnm/backsim/internal/domain"
)

func makeRecord() *domain.RunRecord {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return &domain.RunRecord{
		ID:           "3f2a9c81-aaaa-bbbb-cccc-000000000000",
		Strategy:     "buy_and_hold",
		Start:        start,
		End:          start.AddDate(0, 0, 2),
		StartingCash: 100_000,
		FinalCash:    90_000,
		FinalValue:   101_000,
		Status:       domain.RunCompleted,
		Orders:       1,
		Samples: []domain.ValueSample{
			{Timestamp: start.Add(21 * time.Hour), Value: 100_000},
			{Timestamp: start.AddDate(0, 0, 2).Add(21 * time.Hour), Value: 101_000},
		},
		Fills: []domain.Fill{
			{OrderID: 1, Asset: 1, Quantity: 100, Price: 100, Timestamp: start.Add(21 * time.Hour)},
		},
		Positions: []domain.Position{
			{Asset: 1, Quantity: 100, CostBasis: 100, LastPrice: 110},
		},
	}
}

func TestConsole_NotifyCompact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, nil)

	err := n.Notify(context.Background(), makeRecord())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "3f2a9c81")
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, out, "buy_and_hold")
	assert.Contains(t, out, "2024-03-04→2024-03-06")
	assert.Contains(t, out, "$100000.00 → $101000.00")
	assert.Contains(t, out, "+1.00%")
	// una sola línea
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestConsole_NotifyCompactIncludesError(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, nil)

	rec := makeRecord()
	rec.Status = domain.RunFailed
	rec.ErrMsg = "handle_data exploded"

	require.NoError(t, n.Notify(context.Background(), rec))
	assert.Contains(t, buf.String(), "FAILED")
	assert.Contains(t, buf.String(), "handle_data exploded")
}

func TestConsole_NotifyFullTables(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, map[domain.AssetID]string{1: "SPY"})

	require.NoError(t, n.Notify(context.Background(), makeRecord()))

	out := buf.String()
	assert.Contains(t, out, "BACKTEST 3f2a9c81")
	assert.Contains(t, out, "FILLS (1)")
	assert.Contains(t, out, "SPY")
	assert.Contains(t, out, "BUY")
	assert.Contains(t, out, "POSITIONS (1)")
	assert.Contains(t, out, "VALUE SERIES (2 points)")
	assert.Contains(t, out, "+1.00%")
}

func TestConsole_NotifyFullWithoutActivity(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, nil)

	rec := makeRecord()
	rec.Fills = nil
	rec.Positions = []domain.Position{{Asset: 1, Quantity: 0, Realized: 50}}

	require.NoError(t, n.Notify(context.Background(), rec))
	assert.Contains(t, buf.String(), "No fills.")
	assert.Contains(t, buf.String(), "No open positions.")
}

func TestConsole_NotifyNilRecord(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, nil)

	assert.Error(t, n.Notify(context.Background(), nil))
}

func TestConsole_UnknownAssetFallsBackToID(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, nil)

	require.NoError(t, n.Notify(context.Background(), makeRecord()))
	assert.Contains(t, buf.String(), "#1")
}

func TestConsole_PrintRuns(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, nil)

	rec := makeRecord()
	rec.FinishedAt = time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)
	n.PrintRuns([]domain.RunRecord{*rec})

	out := buf.String()
	assert.Contains(t, out, "3f2a9c81")
	assert.Contains(t, out, "buy_and_hold")
	assert.Contains(t, out, "2024-03-07 10:00")
}

func TestConsole_PrintRunsEmpty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, nil)

	n.PrintRuns(nil)
	assert.Contains(t, buf.String(), "No archived runs.")
}
