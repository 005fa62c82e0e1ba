package ports

import (
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// AssetBar empareja un activo con su barra para un instante de la simulación.
type AssetBar struct {
	Asset domain.Asset
	Bar   domain.Bar
}

// DataSource sirve las barras históricas de la simulación.
type DataSource interface {
	// BarsAt devuelve las barras visibles en el instante ts, en orden
	// ascendente de asset id. Nunca devuelve barras con timestamp
	// posterior a ts: el look-ahead se corta aquí, en la fuente.
	// Un activo sin barra en ese instante simplemente no aparece.
	BarsAt(ts time.Time) ([]AssetBar, error)

	// KnownAssets devuelve el universo de activos cargados, ascendente por id.
	KnownAssets() []domain.Asset

	// DateRange devuelve el primer y último timestamp con datos.
	DateRange() (time.Time, time.Time)
}
