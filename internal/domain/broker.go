package domain

import (
	"fmt"
	"math"
	"time"
)

// OrderError is a per-order resolution failure. The caller transitions the
// order to REJECTED and the run continues; it never aborts the step.
type OrderError struct {
	OrderID OrderID
	Err     error
}

// Broker is the execution resolver: it turns pending orders plus the current
// bar set into fills, applying the injected slippage and commission policies.
// Policies are fixed at construction; the broker holds no per-run state.
type Broker struct {
	slippage   SlippageModel
	commission CommissionModel
}

// NewBroker creates a broker. Nil policies default to NoSlippage and
// NoCommission.
func NewBroker(s SlippageModel, c CommissionModel) *Broker {
	if s == nil {
		s = NoSlippage{}
	}
	if c == nil {
		c = NoCommission{}
	}
	return &Broker{slippage: s, commission: c}
}

// ResolveAll evaluates pending orders against the current bars, in the slice
// order given (the registry hands them over in ascending order id, which is
// what makes fill application deterministic). Orders the market didn't reach
// stay pending untouched; per-order failures come back as OrderErrors; a
// policy producing an invalid value aborts with ErrExecution.
func (b *Broker) ResolveAll(pending []*Order, bars map[AssetID]Bar, ts time.Time) ([]Fill, []OrderError, error) {
	var fills []Fill
	var rejected []OrderError

	for _, o := range pending {
		fill, ok, err := b.resolve(o, bars, ts)
		if err != nil {
			if RejectsOrder(err) {
				rejected = append(rejected, OrderError{OrderID: o.ID, Err: err})
				continue
			}
			return nil, nil, err
		}
		if ok {
			fills = append(fills, fill)
		}
	}
	return fills, rejected, nil
}

// resolve applies the per-kind fill rule to one order:
//
//	MARKET      fills this step at the slippage-adjusted close.
//	LIMIT buy   fills iff bar.low ≤ limit, at min(limit, adjusted close).
//	LIMIT sell  fills iff bar.high ≥ limit, at max(limit, adjusted close).
//	STOP buy    becomes a market fill once bar.high ≥ stop.
//	STOP sell   becomes a market fill once bar.low ≤ stop.
//	STOP_LIMIT  the stop arms first (same or later step); once armed the
//	            limit rule above applies.
//
// The close is the reference price: it is the last information available at
// step completion, so no fill ever uses data the strategy couldn't see.
// Reference policies fill full-or-nothing; partial fills stay reserved for
// volume-capped extensions.
func (b *Broker) resolve(o *Order, bars map[AssetID]Bar, ts time.Time) (Fill, bool, error) {
	bar, ok := bars[o.Asset]
	if !ok {
		if o.Kind == KindMarket {
			return Fill{}, false, fmt.Errorf("broker: order %d: no bar for asset %d this step: %w",
				o.ID, o.Asset, ErrDataUnavailable)
		}
		return Fill{}, false, nil
	}

	ref := bar.Close
	exec := b.slippage.Adjust(*o, ref, bar)

	var price float64
	filled := false

	switch o.Kind {
	case KindMarket:
		price, filled = exec, true

	case KindLimit:
		price, filled = limitFill(o, exec, bar)

	case KindStop:
		if stopTriggered(o, bar) {
			price, filled = exec, true
		}

	case KindStopLimit:
		if !o.Triggered && stopTriggered(o, bar) {
			o.Triggered = true
		}
		if o.Triggered {
			price, filled = limitFill(o, exec, bar)
		}
	}

	if !filled {
		return Fill{}, false, nil
	}

	qty := o.Remaining()
	commission := b.commission.Charge(*o, qty, price)
	if !finite(price) || price < 0 || !finite(commission) || commission < 0 {
		return Fill{}, false, fmt.Errorf("broker: order %d: price %v commission %v: %w",
			o.ID, price, commission, ErrExecution)
	}

	return Fill{
		OrderID:    o.ID,
		Asset:      o.Asset,
		Quantity:   qty,
		Price:      price,
		Commission: commission,
		Timestamp:  ts,
	}, true, nil
}

// limitFill checks the limit trigger and bounds the execution price so the
// fill is never worse than the limit, while still feeling slippage.
func limitFill(o *Order, exec float64, bar Bar) (float64, bool) {
	if o.IsBuy() {
		if bar.Low <= o.LimitPrice {
			return math.Min(o.LimitPrice, exec), true
		}
		return 0, false
	}
	if bar.High >= o.LimitPrice {
		return math.Max(o.LimitPrice, exec), true
	}
	return 0, false
}

func stopTriggered(o *Order, bar Bar) bool {
	if o.IsBuy() {
		return bar.High >= o.StopPrice
	}
	return bar.Low <= o.StopPrice
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
