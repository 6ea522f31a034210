package quantities

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/tensor"
)

// Power-iteration defaults. 100 iterations at 1e-3 relative tolerance
// matches what the eigenvalue estimate is used for (an order-of-magnitude
// curvature scale, not a certified eigenvalue).
const (
	maxEVIterations = 100
	maxEVTolerance  = 1e-3
)

// MaxEV tracks the largest eigenvalue of the batch-loss Hessian via power
// iteration on Hessian-vector products. It needs the computation graph
// retained past the backward pass and is therefore expensive; the cockpit
// runs it after the cheap tier and after reclaiming the cheap tier's
// buffers.
type MaxEV struct {
	baseQuantity
	rng *rand.Rand
}

// NewMaxEV creates a MaxEV quantity.
func NewMaxEV(schedule Schedule) *MaxEV {
	return &MaxEV{
		baseQuantity: newBase("max_ev", schedule),
		rng:          rand.New(rand.NewSource(0)),
	}
}

// Extensions returns nil; MaxEV works on the retained graph, not on
// materialized savefields.
func (q *MaxEV) Extensions(step int) []backprop.Extension {
	return nil
}

// CreateGraph reports true at tracked steps: power iteration evaluates
// Hessian-vector products after the backward pass.
func (q *MaxEV) CreateGraph(step int) bool {
	return q.ShouldCompute(step)
}

// Tier returns TierExpensive.
func (q *MaxEV) Tier() Tier { return TierExpensive }

// Compute records the largest Hessian eigenvalue.
func (q *MaxEV) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	if loss.HVP == nil {
		return fmt.Errorf("quantity %q: problem does not expose Hessian-vector products: %w",
			q.Name(), backprop.ErrUnsupported)
	}

	ps := trainable(params)
	vs := make([]*tensor.Tensor, len(ps))
	for i, p := range ps {
		vs[i] = tensor.Randn(p.Tensor().Shape(), q.rng)
	}
	normalize(vs)

	var ev float64
	for iter := 0; iter < maxEVIterations; iter++ {
		hv := loss.HVP(vs)
		next := rayleigh(vs, hv)
		norm := normalize(hv)
		vs = hv

		if norm == 0 {
			ev = 0
			break
		}
		if iter > 0 && math.Abs(next-ev) <= maxEVTolerance*math.Max(math.Abs(next), 1) {
			ev = next
			break
		}
		ev = next
	}
	q.store(step, "max_ev", ev)
	return nil
}

// rayleigh computes v·Hv for unit v, the eigenvalue estimate of the
// current iterate.
func rayleigh(vs, hvs []*tensor.Tensor) float64 {
	var acc float64
	for i, v := range vs {
		acc += float64(v.Dot(hvs[i]))
	}
	return acc
}

// normalize scales the stacked vector to unit l2 norm in place and
// returns the norm it had.
func normalize(vs []*tensor.Tensor) float64 {
	var sq float64
	for _, v := range vs {
		sq += float64(v.SumSquares())
	}
	norm := math.Sqrt(sq)
	if norm == 0 {
		return 0
	}
	inv := float32(1 / norm)
	for _, v := range vs {
		v.ScaleInPlace(inv)
	}
	return norm
}
