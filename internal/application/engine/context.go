package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// runContext implements strategy.Context over the live state of one run.
// The engine advances now/step between steps; everything else the strategy
// touches goes through the registry and the ledger so the run record sees
// every order, including the rejected ones.
type runContext struct {
	now    time.Time
	step   int
	ledger *domain.Ledger
	reg    *domain.Registry
	window *barWindow
	known  map[domain.AssetID]bool
	kv     map[string]any
}

func newRunContext(ledger *domain.Ledger, reg *domain.Registry, window *barWindow, assets []domain.Asset) *runContext {
	known := make(map[domain.AssetID]bool, len(assets))
	for _, a := range assets {
		known[a.ID] = true
	}
	return &runContext{
		ledger: ledger,
		reg:    reg,
		window: window,
		known:  known,
		kv:     make(map[string]any),
	}
}

// submit registers the order, then rejects it when the asset is outside
// the data source's universe. The order keeps its id either way.
func (c *runContext) submit(o domain.Order) (domain.OrderID, error) {
	id, err := c.reg.Submit(o, c.now, c.step)
	if err != nil {
		return id, err
	}
	if !c.known[o.Asset] {
		if rerr := c.reg.Reject(id); rerr != nil {
			return id, rerr
		}
		return id, fmt.Errorf("engine: order %d: asset %d not in data source: %w",
			id, o.Asset, domain.ErrAssetNotFound)
	}
	return id, nil
}

func (c *runContext) Now() time.Time { return c.now }

func (c *runContext) Order(asset domain.AssetID, qty float64) (domain.OrderID, error) {
	return c.submit(domain.MarketOrder(asset, qty))
}

func (c *runContext) OrderLimit(asset domain.AssetID, qty, limit float64) (domain.OrderID, error) {
	return c.submit(domain.LimitOrder(asset, qty, limit))
}

func (c *runContext) OrderStop(asset domain.AssetID, qty, stop float64) (domain.OrderID, error) {
	return c.submit(domain.StopOrder(asset, qty, stop))
}

func (c *runContext) OrderStopLimit(asset domain.AssetID, qty, stop, limit float64) (domain.OrderID, error) {
	return c.submit(domain.StopLimitOrder(asset, qty, stop, limit))
}

// OrderTarget orders the delta between the target quantity and the current
// position. A zero delta places nothing and returns (0, nil).
func (c *runContext) OrderTarget(asset domain.AssetID, target float64) (domain.OrderID, error) {
	current := 0.0
	if pos, ok := c.ledger.Position(asset); ok {
		current = pos.Quantity
	}
	delta := target - current
	if delta == 0 {
		return 0, nil
	}
	return c.Order(asset, delta)
}

// OrderValue orders as many whole shares as value buys at the current
// close, truncated toward zero. Needs a bar for the asset this step.
func (c *runContext) OrderValue(asset domain.AssetID, value float64) (domain.OrderID, error) {
	qty, err := c.sharesFor(asset, value)
	if err != nil {
		return 0, err
	}
	if qty == 0 {
		return 0, nil
	}
	return c.Order(asset, qty)
}

func (c *runContext) OrderPercent(asset domain.AssetID, pct float64) (domain.OrderID, error) {
	return c.OrderValue(asset, c.ledger.PortfolioValue()*pct)
}

// OrderTargetValue brings the position to the target market value.
func (c *runContext) OrderTargetValue(asset domain.AssetID, value float64) (domain.OrderID, error) {
	targetQty, err := c.sharesFor(asset, value)
	if err != nil {
		return 0, err
	}
	return c.OrderTarget(asset, targetQty)
}

func (c *runContext) OrderTargetPercent(asset domain.AssetID, pct float64) (domain.OrderID, error) {
	return c.OrderTargetValue(asset, c.ledger.PortfolioValue()*pct)
}

// sharesFor converts a cash amount into whole shares at the current close.
func (c *runContext) sharesFor(asset domain.AssetID, value float64) (float64, error) {
	bar, ok := c.window.Current(asset)
	if !ok {
		return 0, fmt.Errorf("engine: no bar for asset %d this step: %w",
			asset, domain.ErrDataUnavailable)
	}
	return math.Trunc(value / bar.Close), nil
}

func (c *runContext) CancelOrder(id domain.OrderID) error {
	return c.reg.Cancel(id)
}

func (c *runContext) GetOrder(id domain.OrderID) (domain.Order, bool) {
	return c.reg.Get(id)
}

func (c *runContext) OpenOrders(asset domain.AssetID) []domain.Order {
	return c.reg.OpenByAsset(asset)
}

func (c *runContext) Cash() float64 { return c.ledger.Cash() }

func (c *runContext) PortfolioValue() float64 { return c.ledger.PortfolioValue() }

func (c *runContext) Position(asset domain.AssetID) (domain.Position, bool) {
	return c.ledger.Position(asset)
}

func (c *runContext) Positions() []domain.Position { return c.ledger.Positions() }

func (c *runContext) Set(key string, value any) { c.kv[key] = value }

func (c *runContext) Get(key string) (any, bool) {
	v, ok := c.kv[key]
	return v, ok
}
