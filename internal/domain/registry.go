package domain

import (
	"fmt"
	"time"
)

// Registry tracks every order of one run: it issues ids, keeps the pending
// queue and owns all lifecycle transitions. Like the ledger it has a single
// writer (the engine's current step) and therefore no locking.
type Registry struct {
	nextID  OrderID
	orders  map[OrderID]*Order
	pending []OrderID // open orders in issuance order (= ascending id)
}

// NewRegistry crea un registro vacío. Los ids empiezan en 1 y crecen de uno
// en uno: la secuencia es idéntica en cada replay, que es lo que hace
// determinista el orden de aplicación de los fills.
func NewRegistry() *Registry {
	return &Registry{
		nextID: 1,
		orders: make(map[OrderID]*Order),
	}
}

// Submit validates and registers an order, collapsing CREATED into SUBMITTED
// within the same call. Invalid orders are registered too, immediately
// REJECTED, so the caller gets an id plus the validation error and the
// rejection shows up in the run record like any other.
func (r *Registry) Submit(o Order, ts time.Time, step int) (OrderID, error) {
	o.ID = r.nextID
	r.nextID++
	o.CreatedAt = ts
	o.SubmittedStep = step
	o.Filled = 0
	o.AvgFillPrice = 0

	if err := o.Validate(); err != nil {
		o.Status = StatusRejected
		r.orders[o.ID] = &o
		return o.ID, fmt.Errorf("registry.Submit: order %d: %w", o.ID, err)
	}

	o.Status = StatusSubmitted
	r.orders[o.ID] = &o
	r.pending = append(r.pending, o.ID)
	return o.ID, nil
}

// RecordFill acumula un fill sobre su orden: cantidad ejecutada, precio
// medio ponderado por volumen y transición a PARTIALLY_FILLED o FILLED.
func (r *Registry) RecordFill(f Fill) error {
	o, ok := r.orders[f.OrderID]
	if !ok {
		return fmt.Errorf("registry.RecordFill: unknown order %d: %w", f.OrderID, ErrInvalidOrder)
	}
	if !o.IsOpen() {
		return fmt.Errorf("registry.RecordFill: order %d is %s: %w", o.ID, o.Status, ErrInvalidOrder)
	}
	if f.Quantity == 0 || !sameSign(f.Quantity, o.Quantity) {
		return fmt.Errorf("registry.RecordFill: order %d: fill qty %v against order qty %v: %w",
			o.ID, f.Quantity, o.Quantity, ErrInvalidOrder)
	}
	newFilled := o.Filled + f.Quantity
	if absf(newFilled) > absf(o.Quantity) {
		return fmt.Errorf("registry.RecordFill: order %d: overfill %v of %v: %w",
			o.ID, newFilled, o.Quantity, ErrInvalidOrder)
	}

	o.AvgFillPrice = (o.AvgFillPrice*absf(o.Filled) + f.Price*absf(f.Quantity)) / absf(newFilled)
	o.Filled = newFilled

	if absf(o.Filled) == absf(o.Quantity) {
		o.Status = StatusFilled
		r.removePending(o.ID)
	} else {
		o.Status = StatusPartiallyFilled
	}
	return nil
}

// Cancel termina una orden abierta sin ejecutar lo pendiente.
func (r *Registry) Cancel(id OrderID) error {
	return r.close(id, StatusCancelled, "Cancel")
}

// Reject marca una orden abierta como rechazada (fondos insuficientes,
// datos no disponibles u otro error por-orden del broker).
func (r *Registry) Reject(id OrderID) error {
	return r.close(id, StatusRejected, "Reject")
}

func (r *Registry) close(id OrderID, status OrderStatus, op string) error {
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("registry.%s: unknown order %d: %w", op, id, ErrInvalidOrder)
	}
	if !o.IsOpen() {
		return fmt.Errorf("registry.%s: order %d is %s: %w", op, id, o.Status, ErrInvalidOrder)
	}
	o.Status = status
	r.removePending(id)
	return nil
}

// Get returns a copy of the order.
func (r *Registry) Get(id OrderID) (Order, bool) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Open returns the pending orders in ascending id order. The pointers are
// live: the broker flips stop-limit trigger flags through them.
func (r *Registry) Open() []*Order {
	out := make([]*Order, 0, len(r.pending))
	for _, id := range r.pending {
		out = append(out, r.orders[id])
	}
	return out
}

// OpenByAsset returns copies of the pending orders for one asset.
func (r *Registry) OpenByAsset(asset AssetID) []Order {
	var out []Order
	for _, id := range r.pending {
		if o := r.orders[id]; o.Asset == asset {
			out = append(out, *o)
		}
	}
	return out
}

// All returns copies of every order ever registered, ascending id.
func (r *Registry) All() []Order {
	out := make([]Order, 0, len(r.orders))
	for id := OrderID(1); id < r.nextID; id++ {
		if o, ok := r.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out
}

// Count devuelve el total de órdenes registradas.
func (r *Registry) Count() int {
	return len(r.orders)
}

func (r *Registry) removePending(id OrderID) {
	for i, pid := range r.pending {
		if pid == id {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return
		}
	}
}
