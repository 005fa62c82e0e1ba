package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// Console implementa ports.Notifier: imprime el resultado de una
// simulación, en una línea (por defecto) o como informe completo con
// tablas de fills y posiciones.
type Console struct {
	out     io.Writer
	table   bool
	symbols map[domain.AssetID]string
}

// NewConsole crea un notificador que escribe a stdout. symbols traduce
// asset ids a tickers en el informe; puede ser nil.
func NewConsole(table bool, symbols map[domain.AssetID]string) *Console {
	return &Console{out: os.Stdout, table: table, symbols: symbols}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool, symbols map[domain.AssetID]string) *Console {
	return &Console{out: w, table: table, symbols: symbols}
}

// Notify imprime el registro en el modo configurado.
func (c *Console) Notify(_ context.Context, rec *domain.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("notify.Notify: nil record")
	}
	if c.table {
		c.printFull(rec)
	} else {
		c.printCompact(rec)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(rec *domain.RunRecord) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] run %s %s %s %s→%s | steps:%d orders:%d fills:%d | $%.2f → $%.2f (%+.2f%%)",
		time.Now().Format("15:04:05"),
		shortID(rec.ID), rec.Status, rec.Strategy,
		rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"),
		rec.Steps(), rec.Orders, len(rec.Fills),
		rec.StartingCash, rec.FinalValue, rec.Return()*100)

	if rec.ErrMsg != "" {
		fmt.Fprintf(&sb, " | err: %s", rec.ErrMsg)
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime el informe completo: cabecera, fills, posiciones y
// extremos de la curva de valor.
func (c *Console) printFull(rec *domain.RunRecord) {
	fmt.Fprintf(c.out, "\n=== BACKTEST %s — %s [%s] ===\n",
		shortID(rec.ID), rec.Strategy, rec.Status)
	fmt.Fprintf(c.out, "  Period:   %s → %s (%d sessions)\n",
		rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"), rec.Steps())
	fmt.Fprintf(c.out, "  Cash:     $%.2f → $%.2f\n", rec.StartingCash, rec.FinalCash)
	fmt.Fprintf(c.out, "  Value:    $%.2f (%+.2f%%)\n", rec.FinalValue, rec.Return()*100)
	fmt.Fprintf(c.out, "  Activity: %d orders, %d fills\n", rec.Orders, len(rec.Fills))
	if rec.ErrMsg != "" {
		fmt.Fprintf(c.out, "  Error:    %s\n", rec.ErrMsg)
	}

	c.printFills(rec.Fills)
	c.printPositions(rec.Positions)
	c.printSeries(rec.Samples)
	fmt.Fprintln(c.out)
}

func (c *Console) printFills(fills []domain.Fill) {
	if len(fills) == 0 {
		fmt.Fprintln(c.out, "\n  No fills.")
		return
	}

	fmt.Fprintf(c.out, "\n  FILLS (%d)\n", len(fills))
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Order", "Asset", "Side", "Qty", "Price", "Comm", "Time")

	for i, f := range fills {
		side := "SELL"
		if f.IsBuy() {
			side = "BUY"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", f.OrderID),
			c.assetLabel(f.Asset),
			side,
			fmt.Sprintf("%.2f", absQty(f.Quantity)),
			fmt.Sprintf("$%.4f", f.Price),
			fmt.Sprintf("$%.2f", f.Commission),
			f.Timestamp.Format("2006-01-02 15:04"),
		)
	}
	table.Render()
}

func (c *Console) printPositions(positions []domain.Position) {
	open := 0
	for _, p := range positions {
		if !p.IsFlat() {
			open++
		}
	}
	if open == 0 {
		fmt.Fprintln(c.out, "\n  No open positions.")
		return
	}

	fmt.Fprintf(c.out, "\n  POSITIONS (%d)\n", open)
	table := tablewriter.NewWriter(c.out)
	table.Header("Asset", "Qty", "Basis", "Last", "Value", "Unreal", "Realized")

	for _, p := range positions {
		if p.IsFlat() {
			continue
		}
		table.Append(
			c.assetLabel(p.Asset),
			fmt.Sprintf("%.2f", p.Quantity),
			fmt.Sprintf("$%.4f", p.CostBasis),
			fmt.Sprintf("$%.4f", p.LastPrice),
			fmt.Sprintf("$%.2f", p.MarketValue()),
			fmt.Sprintf("$%.2f", p.UnrealizedPnL()),
			fmt.Sprintf("$%.2f", p.Realized),
		)
	}
	table.Render()
}

func (c *Console) printSeries(samples []domain.ValueSample) {
	if len(samples) == 0 {
		return
	}
	first, last := samples[0], samples[len(samples)-1]
	fmt.Fprintf(c.out, "\n  VALUE SERIES (%d points)\n", len(samples))
	fmt.Fprintf(c.out, "    first: %s  $%.2f\n", first.Timestamp.Format("2006-01-02"), first.Value)
	fmt.Fprintf(c.out, "    last:  %s  $%.2f\n", last.Timestamp.Format("2006-01-02"), last.Value)
}

// PrintRuns imprime el listado del archivo, la simulación más reciente
// primero.
func (c *Console) PrintRuns(recs []domain.RunRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(c.out, "No archived runs.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Strategy", "Period", "Status", "Final", "Return", "Finished")

	for _, rec := range recs {
		table.Append(
			shortID(rec.ID),
			rec.Strategy,
			fmt.Sprintf("%s→%s", rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02")),
			string(rec.Status),
			fmt.Sprintf("$%.2f", rec.FinalValue),
			fmt.Sprintf("%+.2f%%", rec.Return()*100),
			rec.FinishedAt.Format("2006-01-02 15:04"),
		)
	}
	table.Render()
}

// --- helpers ---

func (c *Console) assetLabel(id domain.AssetID) string {
	if sym, ok := c.symbols[id]; ok {
		return sym
	}
	return fmt.Sprintf("#%d", id)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func absQty(q float64) float64 {
	if q < 0 {
		return -q
	}
	return q
}
