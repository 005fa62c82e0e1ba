package domain

// CommissionModel calcula el coste cobrado por un fill. El resultado es
// siempre ≥ 0 y reduce el neto: suma al coste en compras, resta del
// producto en ventas.
type CommissionModel interface {
	Charge(o Order, qty, price float64) float64
}

// NoCommission no cobra nada.
type NoCommission struct{}

func (NoCommission) Charge(_ Order, _, _ float64) float64 {
	return 0
}

// PerShareCommission cobra un coste lineal por acción, con mínimo opcional.
type PerShareCommission struct {
	CostPerShare float64
	Minimum      float64
}

func (c PerShareCommission) Charge(_ Order, qty, _ float64) float64 {
	cost := c.CostPerShare * absf(qty)
	if cost < c.Minimum {
		cost = c.Minimum
	}
	return cost
}

// PerTradeCommission cobra una tarifa plana por operación.
type PerTradeCommission struct {
	Cost float64
}

func (c PerTradeCommission) Charge(_ Order, _, _ float64) float64 {
	return c.Cost
}
