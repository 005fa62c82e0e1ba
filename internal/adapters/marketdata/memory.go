package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/alejandrodnm/backsim/internal/ports"
)

// serveWindow es cuánto puede envejecer una barra y seguir siendo "la
// barra actual" de un paso. Las series diarias vienen estampadas a
// medianoche y el motor consulta al cierre de sesión; la ventana cubre
// ese desfase sin servir jamás la barra de otra jornada.
const serveWindow = 24 * time.Hour

// Memory sirve barras históricas desde memoria. Es la fuente detrás del
// cargador de CSV y del fetcher de stooq, y la forma directa de inyectar
// series sintéticas en pruebas.
type Memory struct {
	assets []domain.Asset
	bars   map[domain.AssetID][]domain.Bar
	first  time.Time
	last   time.Time
}

// NewMemory crea una fuente vacía.
func NewMemory() *Memory {
	return &Memory{bars: make(map[domain.AssetID][]domain.Bar)}
}

// Add incorpora la serie de un activo. Valida cada barra, ordena por
// timestamp y actualiza el rango de fechas de la fuente.
func (m *Memory) Add(asset domain.Asset, bars []domain.Bar) error {
	if asset.ID <= 0 {
		return fmt.Errorf("marketdata.Add: asset id %d must be positive", asset.ID)
	}
	if _, dup := m.bars[asset.ID]; dup {
		return fmt.Errorf("marketdata.Add: duplicate asset id %d", asset.ID)
	}
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("marketdata.Add: %s bar %d: %w", asset.Symbol, i, err)
		}
	}

	series := make([]domain.Bar, len(bars))
	copy(series, bars)
	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})

	m.assets = append(m.assets, asset)
	sort.Slice(m.assets, func(i, j int) bool { return m.assets[i].ID < m.assets[j].ID })
	m.bars[asset.ID] = series

	if len(series) > 0 {
		if m.first.IsZero() || series[0].Timestamp.Before(m.first) {
			m.first = series[0].Timestamp
		}
		if end := series[len(series)-1].Timestamp; end.After(m.last) {
			m.last = end
		}
	}
	return nil
}

// BarsAt implementa ports.DataSource. Para cada activo devuelve la última
// barra con timestamp en (ts-24h, ts], ascendente por asset id. Nunca
// sirve barras del futuro.
func (m *Memory) BarsAt(ts time.Time) ([]ports.AssetBar, error) {
	cutoff := ts.Add(-serveWindow)

	var out []ports.AssetBar
	for _, asset := range m.assets {
		series := m.bars[asset.ID]
		// primera barra posterior a ts; la candidata es la anterior
		idx := sort.Search(len(series), func(i int) bool {
			return series[i].Timestamp.After(ts)
		})
		if idx == 0 {
			continue
		}
		bar := series[idx-1]
		if !bar.Timestamp.After(cutoff) {
			continue
		}
		out = append(out, ports.AssetBar{Asset: asset, Bar: bar})
	}
	return out, nil
}

// KnownAssets implementa ports.DataSource.
func (m *Memory) KnownAssets() []domain.Asset {
	out := make([]domain.Asset, len(m.assets))
	copy(out, m.assets)
	return out
}

// DateRange implementa ports.DataSource.
func (m *Memory) DateRange() (time.Time, time.Time) {
	return m.first, m.last
}

// History devuelve hasta n barras del activo con timestamp ≤ ts,
// ascendentes. Útil para precargar ventanas antes del arranque.
func (m *Memory) History(asset domain.AssetID, ts time.Time, n int) []domain.Bar {
	series := m.bars[asset]
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp.After(ts)
	})
	start := idx - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.Bar, idx-start)
	copy(out, series[start:idx])
	return out
}
