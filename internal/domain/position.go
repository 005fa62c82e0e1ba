package domain

// Position is the current holding in one asset. Quantity is signed (negative
// for shorts). The entry persists once created: quantity exactly 0 marks a
// flat position whose realized P&L accumulator survives, which keeps "flat
// but traded" distinguishable from "never traded".
type Position struct {
	Asset     AssetID
	Quantity  float64
	CostBasis float64 // weighted-average entry price of the open quantity
	Realized  float64 // P&L booked on quantity-reducing fills
	LastPrice float64 // last known mark
}

// IsFlat reports whether the open quantity is exactly zero.
func (p Position) IsFlat() bool {
	return p.Quantity == 0
}

// MarketValue devuelve quantity × last mark (negativo para cortos).
func (p Position) MarketValue() float64 {
	return p.Quantity * p.LastPrice
}

// UnrealizedPnL devuelve (mark − basis) × quantity sobre la cantidad abierta.
func (p Position) UnrealizedPnL() float64 {
	return (p.LastPrice - p.CostBasis) * p.Quantity
}

// apply actualiza cantidad, base de coste y P&L realizado con un fill.
//
// Reglas (cantidades con signo, q = posición actual, f = fill):
//   - plana o aumento en la misma dirección → media ponderada:
//     basis' = (basis×q + price×f) / (q+f)
//   - reducción hacia cero (signos opuestos, |f| ≤ |q|) →
//     realized += (price − basis) × (−f); la base no cambia
//   - cruce de signo (|f| > |q|) → se cierra q completa contra la base
//     antigua y el resto abre posición nueva con basis = price
func (p *Position) apply(qty, price float64) {
	q := p.Quantity
	switch {
	case q == 0 || sameSign(q, qty):
		total := q + qty
		p.CostBasis = (p.CostBasis*q + price*qty) / total
		p.Quantity = total
	case absf(qty) <= absf(q):
		p.Realized += (price - p.CostBasis) * (-qty)
		p.Quantity = q + qty
		if p.Quantity == 0 {
			p.CostBasis = 0
		}
	default:
		p.Realized += (price - p.CostBasis) * q
		p.Quantity = q + qty
		p.CostBasis = price
	}
}

func sameSign(a, b float64) bool {
	return (a > 0) == (b > 0)
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
