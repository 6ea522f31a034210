package quantities

import (
	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/tensor"
)

// Distance tracks how far each parameter has moved: the distance to its
// value at the first tracked step ("d2init") and the distance covered
// since the previous tracked step ("update_size").
type Distance struct {
	baseQuantity

	initial  []*tensor.Tensor
	previous []*tensor.Tensor
}

// NewDistance creates a Distance quantity.
func NewDistance(schedule Schedule) *Distance {
	return &Distance{baseQuantity: newBase("distance", schedule)}
}

// Extensions returns nil; distances are computed from parameter values.
func (q *Distance) Extensions(step int) []backprop.Extension {
	return nil
}

// Compute records per-parameter distances. The reference point is the
// parameter state at the first step this quantity computed.
func (q *Distance) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	ps := trainable(params)

	if q.initial == nil {
		q.initial = cloneTensors(ps)
		q.previous = q.initial
	}

	d2init := make([]float64, len(ps))
	updateSize := make([]float64, len(ps))
	for i, p := range ps {
		d2init[i] = float64(p.Tensor().Sub(q.initial[i]).Norm())
		updateSize[i] = float64(p.Tensor().Sub(q.previous[i]).Norm())
	}
	q.store(step, "d2init", d2init)
	q.store(step, "update_size", updateSize)

	q.previous = cloneTensors(ps)
	return nil
}

func cloneTensors(ps []*nn.Parameter) []*tensor.Tensor {
	out := make([]*tensor.Tensor, len(ps))
	for i, p := range ps {
		out[i] = p.Tensor().Clone()
	}
	return out
}
