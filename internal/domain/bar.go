package domain

import (
	"fmt"
	"math"
	"time"
)

// Bar is one OHLCV sample for one asset at one timestamp. It is the atomic
// unit of market information the engine exposes to strategies.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Validate comprueba que la barra es coherente: valores finitos no negativos
// y high ≥ max(open, close) ≥ min(open, close) ≥ low.
func (b Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("bar %s: non-finite or negative value", b.Timestamp.Format("2006-01-02"))
		}
	}
	if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
		return fmt.Errorf("bar %s: high/low outside open/close range", b.Timestamp.Format("2006-01-02"))
	}
	return nil
}

// TypicalPrice devuelve (high + low + close) / 3.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Range devuelve high − low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// IsBullish reports whether the bar closed above its open.
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}
