// Package quantities implements the diagnostic quantities the cockpit
// tracks during training: loss and gradient statistics, curvature
// estimates, noise tests, histograms, and the local effective step size
// alpha.
//
// Every quantity owns a Schedule deciding when it is active, declares the
// backward-pass extensions it needs for a step, computes its value from
// the materialized parameter fields, and accumulates results in an output
// mapping keyed by step.
package quantities

import (
	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

// Tier orders quantities by resource cost. The cockpit computes tiers in
// increasing cost order and reclaims parameter buffers between tiers, so
// expensive computations (eigenvalue iterations) never hold the cheap
// quantities' buffers resident.
type Tier int

const (
	// TierCheap quantities read materialized fields and do O(D) work.
	TierCheap Tier = iota
	// TierExpensive quantities run iterative algorithms on the retained
	// graph (currently the Hessian eigenvalue family).
	TierExpensive
)

// Output maps a step index to the values a quantity emitted for it.
// Values are float64 scalars or []float64 arrays; anything else would not
// survive the JSON log round-trip.
type Output map[int]map[string]any

// Quantity is one diagnostic tracked by the cockpit.
//
// Extensions and CreateGraph must be idempotent and side-effect-free: the
// cockpit calls them while aggregating requests across all quantities,
// before it is known what the step will actually materialize.
type Quantity interface {
	// Name identifies the quantity in logs and error messages.
	Name() string

	// ShouldCompute reports whether the schedule selects the step.
	ShouldCompute(step int) bool

	// Extensions returns the backward-pass requests needed at this step,
	// empty when the schedule does not select it.
	Extensions(step int) []backprop.Extension

	// CreateGraph reports whether this quantity needs the forward graph
	// retained past the backward pass at this step.
	CreateGraph(step int) bool

	// Tier returns the quantity's resource cost tier.
	Tier() Tier

	// Compute reads the materialized fields and records output. Fields do
	// not survive past this call. A quantity that finds its required
	// fields missing must return an error, never a wrong value.
	Compute(step int, params []*nn.Parameter, loss backprop.Loss) error

	// Output returns the accumulated per-step values. Keys are exactly
	// the steps the schedule selected and the quantity finished
	// computing (multi-step quantities only emit once their window
	// closes).
	Output() Output
}

// baseQuantity carries the state every quantity shares.
type baseQuantity struct {
	name     string
	schedule Schedule
	output   Output
}

func newBase(name string, schedule Schedule) baseQuantity {
	if schedule == nil {
		schedule = Linear(1)
	}
	return baseQuantity{
		name:     name,
		schedule: schedule,
		output:   make(Output),
	}
}

func (q *baseQuantity) Name() string { return q.name }

func (q *baseQuantity) ShouldCompute(step int) bool { return q.schedule(step) }

func (q *baseQuantity) CreateGraph(step int) bool { return false }

func (q *baseQuantity) Tier() Tier { return TierCheap }

func (q *baseQuantity) Output() Output { return q.output }

// store records a value for a step.
func (q *baseQuantity) store(step int, key string, value any) {
	m, ok := q.output[step]
	if !ok {
		m = make(map[string]any)
		q.output[step] = m
	}
	m[key] = value
}

// trainable filters params down to those requiring gradients.
func trainable(params []*nn.Parameter) []*nn.Parameter {
	out := make([]*nn.Parameter, 0, len(params))
	for _, p := range params {
		if p.RequiresGrad() {
			out = append(out, p)
		}
	}
	return out
}
