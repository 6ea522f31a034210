package quantities

import (
	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

const earlyStoppingEpsilon = 1e-8

// EarlyStopping tracks the evidence-based early stopping criterion of
// Mahsereci et al.:
//
//	EB = 1 − B · mean_j(ḡ_j² / (Var_n[g_{n,j}] + ε))
//
// A positive value signals that the gradient is no longer distinguishable
// from noise. The criterion is derived for plain SGD; with momentum or
// adaptive optimizers its scale is off, which the runner warns about when
// wiring this quantity.
type EarlyStopping struct {
	baseQuantity
	epsilon float64
}

// NewEarlyStopping creates an EarlyStopping quantity.
func NewEarlyStopping(schedule Schedule) *EarlyStopping {
	return &EarlyStopping{
		baseQuantity: newBase("early_stopping", schedule),
		epsilon:      earlyStoppingEpsilon,
	}
}

// Extensions requests per-sample squared gradient sums at tracked steps.
func (q *EarlyStopping) Extensions(step int) []backprop.Extension {
	if !q.ShouldCompute(step) {
		return nil
	}
	return []backprop.Extension{
		backprop.NewBatchGradTransforms(map[string]backprop.Transform{
			keySumGradSquared: SumGradSquaredTransform,
		}),
	}
}

// Compute records the early stopping criterion.
func (q *EarlyStopping) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	batch := float64(loss.BatchSize())

	var sum float64
	var count int
	for _, p := range trainable(params) {
		g, err := fetchGrad(q, p)
		if err != nil {
			return err
		}
		sgs, err := fetchTransform(q, p, keySumGradSquared)
		if err != nil {
			return err
		}
		grads := g.AsFloat64()
		sums := sgs.AsFloat64()
		for j, gj := range grads {
			gSq := gj * gj
			variance := (sums[j] - batch*gSq) / (batch - 1)
			sum += gSq / (variance + q.epsilon)
		}
		count += len(grads)
	}
	q.store(step, "early_stopping", 1-batch*sum/float64(count))
	return nil
}
