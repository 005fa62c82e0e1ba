package domain

// SlippageModel ajusta el precio de referencia al precio de ejecución.
// El ajuste es siempre desfavorable para el trader: compras pagan ≥ ref,
// ventas reciben ≤ ref.
type SlippageModel interface {
	Adjust(o Order, ref float64, bar Bar) float64
}

// NoSlippage ejecuta exactamente al precio de referencia.
type NoSlippage struct{}

func (NoSlippage) Adjust(_ Order, ref float64, _ Bar) float64 {
	return ref
}

// FixedSlippage aplica un desplazamiento absoluto fijo.
type FixedSlippage struct {
	Offset float64
}

func (s FixedSlippage) Adjust(o Order, ref float64, _ Bar) float64 {
	return ref + direction(o)*s.Offset
}

// VolumeShareSlippage modela impacto creciente con el tamaño de la orden
// relativo a la liquidez de la barra.
//
// Fórmula:
//
//	share  = |qty| / bar.volume        (limitada a VolumeLimit si > 0)
//	offset = PriceImpact × share
//
// Barras con volumen 0 no aportan información de liquidez: ejecutan a ref.
type VolumeShareSlippage struct {
	PriceImpact float64
	VolumeLimit float64
}

func (s VolumeShareSlippage) Adjust(o Order, ref float64, bar Bar) float64 {
	if bar.Volume <= 0 {
		return ref
	}
	share := absf(o.Remaining()) / bar.Volume
	if s.VolumeLimit > 0 && share > s.VolumeLimit {
		share = s.VolumeLimit
	}
	return ref + direction(o)*s.PriceImpact*share
}

// direction devuelve +1 para compras y −1 para ventas, el sentido
// desfavorable del ajuste.
func direction(o Order) float64 {
	if o.IsBuy() {
		return 1
	}
	return -1
}
