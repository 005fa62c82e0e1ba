package domain

import (
	"fmt"
	"math"
	"time"
)

// OrderID is issued by the Registry as a strictly increasing sequence
// starting at 1. Zero means "no order was created".
type OrderID int64

// OrderKind selects the fill rule the broker applies to an order.
type OrderKind string

const (
	KindMarket    OrderKind = "MARKET"
	KindLimit     OrderKind = "LIMIT"
	KindStop      OrderKind = "STOP"
	KindStopLimit OrderKind = "STOP_LIMIT"
)

// OrderStatus represents the lifecycle of an order.
//
//	CREATED → SUBMITTED → {PARTIALLY_FILLED → FILLED | FILLED | CANCELLED | REJECTED}
//
// CREATED is transient: Registry.Submit collapses it into SUBMITTED within
// the same step. FILLED, CANCELLED and REJECTED are terminal. Open orders
// persist across steps (good-til-cancelled), there is no implicit expiry.
type OrderStatus string

const (
	StatusCreated         OrderStatus = "CREATED"
	StatusSubmitted       OrderStatus = "SUBMITTED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
)

// Order is a request to trade a signed quantity of one asset.
type Order struct {
	ID           OrderID
	Asset        AssetID
	Quantity     float64 // signed: > 0 buy, < 0 sell; never 0
	Kind         OrderKind
	LimitPrice   float64 // LIMIT and STOP_LIMIT only
	StopPrice    float64 // STOP and STOP_LIMIT only
	Status       OrderStatus
	Filled       float64 // signed, same sign as Quantity, |Filled| ≤ |Quantity|
	AvgFillPrice float64 // volume-weighted across partial fills
	Triggered    bool    // stop condition already met (STOP_LIMIT bookkeeping)
	SubmittedStep int    // engine step index at submission, for fill-timing policy
	CreatedAt    time.Time
}

// MarketOrder builds an unsubmitted market order.
func MarketOrder(asset AssetID, quantity float64) Order {
	return Order{Asset: asset, Quantity: quantity, Kind: KindMarket, Status: StatusCreated}
}

// LimitOrder builds an unsubmitted limit order.
func LimitOrder(asset AssetID, quantity, limit float64) Order {
	return Order{Asset: asset, Quantity: quantity, Kind: KindLimit, LimitPrice: limit, Status: StatusCreated}
}

// StopOrder builds an unsubmitted stop order.
func StopOrder(asset AssetID, quantity, stop float64) Order {
	return Order{Asset: asset, Quantity: quantity, Kind: KindStop, StopPrice: stop, Status: StatusCreated}
}

// StopLimitOrder builds an unsubmitted stop-limit order.
func StopLimitOrder(asset AssetID, quantity, stop, limit float64) Order {
	return Order{
		Asset:      asset,
		Quantity:   quantity,
		Kind:       KindStopLimit,
		StopPrice:  stop,
		LimitPrice: limit,
		Status:     StatusCreated,
	}
}

// Validate comprueba cantidad y precios antes de aceptar la orden.
func (o Order) Validate() error {
	if o.Quantity == 0 || math.IsNaN(o.Quantity) || math.IsInf(o.Quantity, 0) {
		return fmt.Errorf("quantity %v: %w", o.Quantity, ErrInvalidOrder)
	}
	switch o.Kind {
	case KindMarket:
	case KindLimit:
		if !validPrice(o.LimitPrice) {
			return fmt.Errorf("limit price %v: %w", o.LimitPrice, ErrInvalidOrder)
		}
	case KindStop:
		if !validPrice(o.StopPrice) {
			return fmt.Errorf("stop price %v: %w", o.StopPrice, ErrInvalidOrder)
		}
	case KindStopLimit:
		if !validPrice(o.StopPrice) || !validPrice(o.LimitPrice) {
			return fmt.Errorf("stop %v / limit %v: %w", o.StopPrice, o.LimitPrice, ErrInvalidOrder)
		}
	default:
		return fmt.Errorf("kind %q: %w", o.Kind, ErrInvalidOrder)
	}
	return nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// IsBuy reports the order direction.
func (o Order) IsBuy() bool {
	return o.Quantity > 0
}

// Remaining devuelve la cantidad (con signo) que queda por ejecutar.
func (o Order) Remaining() float64 {
	return o.Quantity - o.Filled
}

// IsOpen reports whether the order can still fill or be cancelled.
func (o Order) IsOpen() bool {
	return o.Status == StatusSubmitted || o.Status == StatusPartiallyFilled
}

// IsTerminal reports whether the lifecycle has ended.
func (o Order) IsTerminal() bool {
	return o.Status == StatusFilled || o.Status == StatusCancelled || o.Status == StatusRejected
}
