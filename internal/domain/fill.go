package domain

import (
	"math"
	"time"
)

// Fill records one executed transaction against an order. Fills are
// append-only: replaying the fill sequence from the starting cash balance
// must reproduce the ledger's cash and positions exactly.
type Fill struct {
	OrderID    OrderID
	Asset      AssetID
	Quantity   float64 // signed, same convention as Order.Quantity
	Price      float64
	Commission float64
	Timestamp  time.Time
}

// IsBuy reports the fill direction.
func (f Fill) IsBuy() bool {
	return f.Quantity > 0
}

// Notional devuelve price × |quantity|, el valor bruto de la transacción.
func (f Fill) Notional() float64 {
	return f.Price * math.Abs(f.Quantity)
}

// CashDelta devuelve el efecto exacto sobre la caja:
//
//	compra: −(price × |qty|) − commission
//	venta:  +(price × |qty|) − commission
//
// La comisión siempre reduce el neto.
func (f Fill) CashDelta() float64 {
	if f.IsBuy() {
		return -f.Notional() - f.Commission
	}
	return f.Notional() - f.Commission
}
