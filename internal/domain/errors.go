package domain

import "errors"

// Error taxonomy of the simulation core. Callers classify with errors.Is;
// everything else that reaches the engine is treated as fatal.
var (
	// ErrAssetNotFound: the order references an asset the data source has
	// never heard of. Rejects the order, the run continues.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrInvalidOrder: zero or non-finite quantity, non-positive limit/stop
	// price, or an illegal lifecycle transition. Rejects the order.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInsufficientCash: applying the fill would drive cash negative.
	// There is no margin model. Rejects the order.
	ErrInsufficientCash = errors.New("insufficient cash")

	// ErrDataUnavailable: a market order has no bar to resolve against at
	// the required step. Rejects the order.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrCalendarRange: a date outside the calendar's known range. Fatal,
	// the run cannot advance without a valid schedule.
	ErrCalendarRange = errors.New("date outside calendar range")

	// ErrExecution: a slippage or commission policy produced a non-finite
	// or negative value. Fatal.
	ErrExecution = errors.New("execution policy returned an invalid value")

	// ErrStrategy wraps a failure raised inside a strategy callback. Fatal.
	ErrStrategy = errors.New("strategy callback failed")
)

// RejectsOrder reports whether err is a per-order failure: the offending
// order transitions to REJECTED and the run continues for everything else.
func RejectsOrder(err error) bool {
	return errors.Is(err, ErrAssetNotFound) ||
		errors.Is(err, ErrInvalidOrder) ||
		errors.Is(err, ErrInsufficientCash) ||
		errors.Is(err, ErrDataUnavailable)
}
