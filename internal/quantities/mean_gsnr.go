package quantities

import (
	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

const gsnrEpsilon = 1e-8

// MeanGSNR tracks the mean gradient signal-to-noise ratio over all
// trainable coordinates:
//
//	gsnr_j = ḡ_j² / (Var_n[g_{n,j}] + ε)
//
// with the per-coordinate variance estimated from the sum of squared
// per-sample gradients, Var_j = (sgs_j − B·ḡ_j²) / (B−1).
type MeanGSNR struct {
	baseQuantity
	epsilon float64
}

// NewMeanGSNR creates a MeanGSNR quantity.
func NewMeanGSNR(schedule Schedule) *MeanGSNR {
	return &MeanGSNR{
		baseQuantity: newBase("mean_gsnr", schedule),
		epsilon:      gsnrEpsilon,
	}
}

// Extensions requests per-sample squared gradient sums at tracked steps.
func (q *MeanGSNR) Extensions(step int) []backprop.Extension {
	if !q.ShouldCompute(step) {
		return nil
	}
	return []backprop.Extension{
		backprop.NewBatchGradTransforms(map[string]backprop.Transform{
			keySumGradSquared: SumGradSquaredTransform,
		}),
	}
}

// Compute records the mean coordinate-wise gradient SNR.
func (q *MeanGSNR) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
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
	q.store(step, "mean_gsnr", sum/float64(count))
	return nil
}
