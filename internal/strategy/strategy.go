package strategy

import (
	"sort"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// Strategy define el contrato que el motor de simulación invoca en cada
// jornada. Cada estrategia encapsula una lógica de trading diferente.
type Strategy interface {
	// Name devuelve el identificador único de la estrategia.
	Name() string

	// Initialize se llama una vez antes de la primera jornada.
	Initialize(ctx Context) error

	// BeforeTradingStart se llama al comienzo de cada jornada, antes de
	// HandleData, con la vista de datos ya actualizada.
	BeforeTradingStart(ctx Context, data Data) error

	// HandleData se llama una vez por jornada con las barras del cierre.
	// Las órdenes creadas aquí entran al registro y se resuelven según
	// la política de fills del motor.
	HandleData(ctx Context, data Data) error

	// Analyze se llama al terminar la simulación con el registro completo.
	Analyze(ctx Context, rec *domain.RunRecord) error
}

// Context es la API que el motor expone a la estrategia: entrada de
// órdenes, lecturas de cartera y un almacén clave-valor por run.
type Context interface {
	// Now devuelve el timestamp del paso actual de la simulación.
	Now() time.Time

	// Order crea una orden de mercado por qty unidades (negativo vende).
	Order(asset domain.AssetID, qty float64) (domain.OrderID, error)
	// OrderLimit crea una orden límite.
	OrderLimit(asset domain.AssetID, qty, limit float64) (domain.OrderID, error)
	// OrderStop crea una orden stop.
	OrderStop(asset domain.AssetID, qty, stop float64) (domain.OrderID, error)
	// OrderStopLimit crea una orden stop-límite.
	OrderStopLimit(asset domain.AssetID, qty, stop, limit float64) (domain.OrderID, error)

	// OrderTarget ordena la diferencia hasta la posición objetivo.
	// Si la posición ya es la pedida devuelve (0, nil) sin crear orden.
	OrderTarget(asset domain.AssetID, target float64) (domain.OrderID, error)
	// OrderValue ordena las unidades enteras que caben en value al cierre
	// actual del activo. Sin barra devuelve ErrDataUnavailable.
	OrderValue(asset domain.AssetID, value float64) (domain.OrderID, error)
	// OrderPercent es OrderValue con pct del valor actual de la cartera.
	OrderPercent(asset domain.AssetID, pct float64) (domain.OrderID, error)
	// OrderTargetValue lleva la posición al valor objetivo.
	OrderTargetValue(asset domain.AssetID, value float64) (domain.OrderID, error)
	// OrderTargetPercent lleva la posición al pct objetivo de la cartera.
	OrderTargetPercent(asset domain.AssetID, pct float64) (domain.OrderID, error)

	// CancelOrder cancela una orden abierta.
	CancelOrder(id domain.OrderID) error
	// GetOrder devuelve una copia de la orden.
	GetOrder(id domain.OrderID) (domain.Order, bool)
	// OpenOrders devuelve las órdenes abiertas del activo.
	OpenOrders(asset domain.AssetID) []domain.Order

	// Cash es el efectivo disponible.
	Cash() float64
	// PortfolioValue es efectivo más posiciones a precio de mercado.
	PortfolioValue() float64
	// Position devuelve la posición del activo; false si nunca se operó.
	Position(asset domain.AssetID) (domain.Position, bool)
	// Positions devuelve todas las posiciones en orden ascendente de id.
	Positions() []domain.Position

	// Set y Get forman el almacén clave-valor del run. Cada run estrena
	// el suyo; nunca se comparte entre simulaciones.
	Set(key string, value any)
	Get(key string) (any, bool)
}

// Data es la vista de mercado de la jornada: barras actuales y una
// ventana acotada de historia. Nunca contiene barras del futuro.
type Data interface {
	// Current devuelve la barra del activo en este paso, si la hay.
	Current(asset domain.AssetID) (domain.Bar, bool)

	// History devuelve hasta n barras hasta el paso actual inclusive,
	// ascendentes por tiempo. Menos si la ventana aún no se llenó.
	History(asset domain.AssetID, n int) []domain.Bar

	// Closes devuelve los cierres de History(asset, n).
	Closes(asset domain.AssetID, n int) []float64

	// Assets devuelve los activos con barra en este paso, ascendente por id.
	Assets() []domain.Asset
}

// Base aporta implementaciones vacías de los callbacks opcionales para
// embeber en estrategias que no los necesitan todos.
type Base struct{}

func (Base) Initialize(Context) error { return nil }

func (Base) BeforeTradingStart(Context, Data) error { return nil }

func (Base) HandleData(Context, Data) error { return nil }

func (Base) Analyze(Context, *domain.RunRecord) error { return nil }

// Registry mantiene las estrategias disponibles indexadas por nombre.
type Registry map[string]Strategy

// NewRegistry crea un registry vacío.
func NewRegistry() Registry {
	return make(Registry)
}

// Register añade una estrategia al registry.
func (r Registry) Register(s Strategy) {
	r[s.Name()] = s
}

// Get devuelve la estrategia por nombre.
func (r Registry) Get(name string) (Strategy, bool) {
	s, ok := r[name]
	return s, ok
}

// Names devuelve los nombres registrados, ordenados.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r))
	for name := range r {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
