package quantities

import (
	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

// Trace tracks the Hessian trace of the batch loss, per parameter, from
// the materialized Hessian diagonal.
type Trace struct {
	baseQuantity
}

// NewTrace creates a Trace quantity.
func NewTrace(schedule Schedule) *Trace {
	return &Trace{baseQuantity: newBase("trace", schedule)}
}

// Extensions requests the Hessian diagonal at tracked steps.
func (q *Trace) Extensions(step int) []backprop.Extension {
	if !q.ShouldCompute(step) {
		return nil
	}
	return []backprop.Extension{backprop.DiagHessian{}}
}

// Compute records each trainable parameter's Hessian trace contribution.
func (q *Trace) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	ps := trainable(params)
	traces := make([]float64, len(ps))
	for i, p := range ps {
		diag, err := fetchDiag(q, p, backprop.FieldDiagHessian)
		if err != nil {
			return err
		}
		traces[i] = float64(diag.Sum())
	}
	q.store(step, "trace", traces)
	return nil
}
