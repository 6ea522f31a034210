package quantities

import (
	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

// GradNorm tracks the l2 norm of the batch gradient, per parameter.
type GradNorm struct {
	baseQuantity
}

// NewGradNorm creates a GradNorm quantity.
func NewGradNorm(schedule Schedule) *GradNorm {
	return &GradNorm{baseQuantity: newBase("grad_norm", schedule)}
}

// Extensions returns nil; gradient norms only need the batch gradient the
// backward pass computes anyway.
func (q *GradNorm) Extensions(step int) []backprop.Extension {
	return nil
}

// Compute records each trainable parameter's gradient norm.
func (q *GradNorm) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	ps := trainable(params)
	norms := make([]float64, len(ps))
	for i, p := range ps {
		g, err := fetchGrad(q, p)
		if err != nil {
			return err
		}
		norms[i] = float64(g.Norm())
	}
	q.store(step, "grad_norm", norms)
	return nil
}
