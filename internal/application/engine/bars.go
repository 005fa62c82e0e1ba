package engine

import (
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/alejandrodnm/backsim/internal/ports"
)

// barWindow is the market view handed to the strategy: the bars of the
// current step plus a bounded per-asset history. It implements
// strategy.Data. Bars stamped after the step timestamp never enter the
// view, whatever the data source returned.
type barWindow struct {
	limit   int
	assets  []domain.Asset
	current map[domain.AssetID]domain.Bar
	history map[domain.AssetID][]domain.Bar
}

func newBarWindow(limit int) *barWindow {
	return &barWindow{
		limit:   limit,
		current: make(map[domain.AssetID]domain.Bar),
		history: make(map[domain.AssetID][]domain.Bar),
	}
}

// advance replaces the current view with the bars of a new step and rolls
// them into the history window.
func (w *barWindow) advance(ts time.Time, bars []ports.AssetBar) {
	w.assets = w.assets[:0]
	clear(w.current)

	for _, ab := range bars {
		if ab.Bar.Timestamp.After(ts) {
			continue
		}
		w.assets = append(w.assets, ab.Asset)
		w.current[ab.Asset.ID] = ab.Bar

		h := append(w.history[ab.Asset.ID], ab.Bar)
		if len(h) > w.limit {
			// shift in place so the backing array stays bounded
			copy(h, h[len(h)-w.limit:])
			h = h[:w.limit]
		}
		w.history[ab.Asset.ID] = h
	}
}

// closePrices are the marks for this step, taken from the current closes.
func (w *barWindow) closePrices() map[domain.AssetID]float64 {
	prices := make(map[domain.AssetID]float64, len(w.current))
	for id, bar := range w.current {
		prices[id] = bar.Close
	}
	return prices
}

// Current implements strategy.Data.
func (w *barWindow) Current(asset domain.AssetID) (domain.Bar, bool) {
	bar, ok := w.current[asset]
	return bar, ok
}

// History implements strategy.Data. Returns a copy of up to n bars.
func (w *barWindow) History(asset domain.AssetID, n int) []domain.Bar {
	if n <= 0 {
		return nil
	}
	h := w.history[asset]
	if len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]domain.Bar, len(h))
	copy(out, h)
	return out
}

// Closes implements strategy.Data.
func (w *barWindow) Closes(asset domain.AssetID, n int) []float64 {
	if n <= 0 {
		return nil
	}
	h := w.history[asset]
	if len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]float64, len(h))
	for i, bar := range h {
		out[i] = bar.Close
	}
	return out
}

// Assets implements strategy.Data.
func (w *barWindow) Assets() []domain.Asset {
	out := make([]domain.Asset, len(w.assets))
	copy(out, w.assets)
	return out
}
