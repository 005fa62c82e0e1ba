package domain

import "time"

// RunStatus is the terminal disposition of one engine run.
type RunStatus string

const (
	RunCompleted RunStatus = "COMPLETED"
	RunCancelled RunStatus = "CANCELLED" // cooperative cancellation at a step boundary
	RunFailed    RunStatus = "FAILED"    // fatal error; the record holds the partial state
)

// ValueSample is one point of the portfolio value series, one per processed
// step. The series is append-only and unbounded for the run's duration.
type ValueSample struct {
	Timestamp time.Time
	Value     float64
}

// RunRecord is everything one run produced: the raw value series, the fill
// journal and the final snapshot. The engine records, it does not compute
// statistics; return ratios, Sharpe and friends belong to whatever consumes
// this record.
type RunRecord struct {
	ID           string // uuid; run identity is metadata, outside the determinism contract
	Strategy     string
	Start        time.Time
	End          time.Time
	StartingCash float64
	FinalCash    float64
	FinalValue   float64
	Status       RunStatus
	ErrMsg       string // set when Status == FAILED
	Orders       int    // total orders registered, terminal or not
	Samples      []ValueSample
	Fills        []Fill
	Positions    []Position
	StartedAt    time.Time // wall clock, for operators; not simulation time
	FinishedAt   time.Time
}

// Return devuelve el retorno simple del run: FinalValue/StartingCash − 1.
func (r *RunRecord) Return() float64 {
	if r.StartingCash == 0 {
		return 0
	}
	return r.FinalValue/r.StartingCash - 1
}

// Steps devuelve el número de pasos procesados.
func (r *RunRecord) Steps() int {
	return len(r.Samples)
}
