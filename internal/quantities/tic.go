package quantities

import (
	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

// Takeuchi Information Criterion variants: the ratio of gradient noise
// (coordinate-wise second moment of per-sample gradients) to curvature
// (Hessian diagonal).
//
// With m_j = (1/B) Σ_n g_{n,j}² and h_j the Hessian diagonal:
//
//	TICDiag  = Σ_j m_j / (h_j + ε)
//	TICTrace = (Σ_j m_j) / (Σ_j h_j + ε)

const ticEpsilon = 1e-8

// TICDiag approximates the TIC with a coordinate-wise curvature inverse.
type TICDiag struct {
	baseQuantity
	epsilon float64
}

// NewTICDiag creates a TICDiag quantity.
func NewTICDiag(schedule Schedule) *TICDiag {
	return &TICDiag{
		baseQuantity: newBase("tic_diag", schedule),
		epsilon:      ticEpsilon,
	}
}

// Extensions requests the Hessian diagonal and per-sample squared
// gradient sums at tracked steps.
func (q *TICDiag) Extensions(step int) []backprop.Extension {
	if !q.ShouldCompute(step) {
		return nil
	}
	return []backprop.Extension{
		backprop.DiagHessian{},
		backprop.NewBatchGradTransforms(map[string]backprop.Transform{
			keySumGradSquared: SumGradSquaredTransform,
		}),
	}
}

// Compute records the TIC with diagonal curvature.
func (q *TICDiag) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	batch := float64(loss.BatchSize())

	var tic float64
	for _, p := range trainable(params) {
		diag, err := fetchDiag(q, p, backprop.FieldDiagHessian)
		if err != nil {
			return err
		}
		sgs, err := fetchTransform(q, p, keySumGradSquared)
		if err != nil {
			return err
		}
		h := diag.AsFloat64()
		m := sgs.AsFloat64()
		for j := range m {
			tic += (m[j] / batch) / (h[j] + q.epsilon)
		}
	}
	q.store(step, "tic_diag", tic)
	return nil
}

// TICTrace approximates the TIC with the total trace as curvature.
type TICTrace struct {
	baseQuantity
	epsilon float64
}

// NewTICTrace creates a TICTrace quantity.
func NewTICTrace(schedule Schedule) *TICTrace {
	return &TICTrace{
		baseQuantity: newBase("tic_trace", schedule),
		epsilon:      ticEpsilon,
	}
}

// Extensions requests the Hessian diagonal and per-sample squared
// gradient sums at tracked steps.
func (q *TICTrace) Extensions(step int) []backprop.Extension {
	if !q.ShouldCompute(step) {
		return nil
	}
	return []backprop.Extension{
		backprop.DiagHessian{},
		backprop.NewBatchGradTransforms(map[string]backprop.Transform{
			keySumGradSquared: SumGradSquaredTransform,
		}),
	}
}

// Compute records the TIC with trace curvature.
func (q *TICTrace) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	batch := float64(loss.BatchSize())

	var noise, trace float64
	for _, p := range trainable(params) {
		diag, err := fetchDiag(q, p, backprop.FieldDiagHessian)
		if err != nil {
			return err
		}
		sgs, err := fetchTransform(q, p, keySumGradSquared)
		if err != nil {
			return err
		}
		trace += float64(diag.Sum())
		noise += float64(sgs.Sum()) / batch
	}
	q.store(step, "tic_trace", noise/(trace+q.epsilon))
	return nil
}
