package quantities

import (
	"math"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/tensor"
)

// minObservationVariance stands in for exactly-zero sample variances, so
// noise-free observations enter the weighted fit as near-certain instead
// of dividing by zero.
const minObservationVariance = 1e-10

// Alpha tracks the local effective step size: a noise-aware quadratic fit
// of the loss along one optimizer update, normalized so that 0 means the
// update stepped exactly to the local minimum and -1/1 mean under- and
// overshooting it.
//
// An update spans two training steps. At a tracked step Alpha caches the
// parameter values, the batch loss, and the per-sample gradients; at the
// following step it projects both endpoints' gradients onto the realized
// update direction, fits the parabola, and emits the result keyed at the
// step the window started.
type Alpha struct {
	baseQuantity

	startStep   int
	startParams []*tensor.Tensor
	startGrads  [][]*tensor.Tensor
	startLoss   float64
	startVarF   float64
	pending     bool
}

// NewAlpha creates an Alpha quantity.
func NewAlpha(schedule Schedule) *Alpha {
	return &Alpha{baseQuantity: newBase("alpha", schedule)}
}

// ShouldCompute reports true at tracked steps and at the step after, when
// the window closes.
func (q *Alpha) ShouldCompute(step int) bool {
	return q.schedule(step) || (step > 0 && q.schedule(step-1))
}

// Extensions requests per-sample gradients whenever the step is a window
// endpoint; the gradient noise at both endpoints feeds the fit weights.
func (q *Alpha) Extensions(step int) []backprop.Extension {
	if !q.ShouldCompute(step) {
		return nil
	}
	return []backprop.Extension{backprop.BatchGrad{}}
}

// Compute closes the window started at the previous step, if any, and
// opens a new one when the schedule selects this step.
func (q *Alpha) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	ps := trainable(params)

	if q.pending && q.startStep == step-1 {
		if err := q.closeWindow(step, ps, loss); err != nil {
			return err
		}
		q.pending = false
	}

	if q.schedule(step) {
		if err := q.openWindow(step, ps, loss); err != nil {
			return err
		}
	}
	return nil
}

func (q *Alpha) openWindow(step int, ps []*nn.Parameter, loss backprop.Loss) error {
	q.startParams = cloneTensors(ps)
	q.startGrads = make([][]*tensor.Tensor, len(ps))
	for i, p := range ps {
		bg, err := fetchGradBatch(q, p)
		if err != nil {
			return err
		}
		cloned := make([]*tensor.Tensor, len(bg))
		for n, g := range bg {
			cloned[n] = g.Clone()
		}
		q.startGrads[i] = cloned
	}
	q.startLoss = loss.Value
	q.startVarF = loss.LossVariance() / float64(loss.BatchSize())
	q.startStep = step
	q.pending = true
	return nil
}

func (q *Alpha) closeWindow(step int, ps []*nn.Parameter, loss backprop.Loss) error {
	// The realized update, its length, and the unit search direction.
	update := make([]*tensor.Tensor, len(ps))
	var tSq float64
	for i, p := range ps {
		update[i] = p.Tensor().Sub(q.startParams[i])
		tSq += float64(update[i].SumSquares())
	}
	t := math.Sqrt(tSq)
	dir := update
	if t > 0 {
		inv := float32(1 / t)
		for _, u := range dir {
			u.ScaleInPlace(inv)
		}
	}

	endGrads := make([][]*tensor.Tensor, len(ps))
	for i, p := range ps {
		bg, err := fetchGradBatch(q, p)
		if err != nil {
			return err
		}
		endGrads[i] = bg
	}

	dfStart, varDfStart := projectedDerivative(q.startGrads, dir)
	dfEnd, varDfEnd := projectedDerivative(endGrads, dir)

	fs := [2]float64{q.startLoss, loss.Value}
	dfs := [2]float64{dfStart, dfEnd}
	fsVar := [2]float64{
		clampVariance(q.startVarF),
		clampVariance(loss.LossVariance() / float64(loss.BatchSize())),
	}
	dfsVar := [2]float64{clampVariance(varDfStart), clampVariance(varDfEnd)}

	mu := FitQuadratic(t, fs, dfs, fsVar, dfsVar)
	q.store(q.startStep, "alpha", AlphaFromFit(mu, t))

	q.startParams = nil
	q.startGrads = nil
	return nil
}

// projectedDerivative computes the batch directional derivative along dir
// and the variance of its estimator, from per-sample gradients indexed
// [parameter][sample].
func projectedDerivative(batchGrads [][]*tensor.Tensor, dir []*tensor.Tensor) (df, varDf float64) {
	if len(batchGrads) == 0 {
		return 0, 0
	}
	batch := len(batchGrads[0])
	projections := make([]float64, batch)
	for i, perSample := range batchGrads {
		for n, g := range perSample {
			projections[n] += float64(g.Dot(dir[i]))
		}
	}
	for _, p := range projections {
		df += p
	}
	df /= float64(batch)

	if batch < 2 {
		return df, 0
	}
	var acc float64
	for _, p := range projections {
		d := p - df
		acc += d * d
	}
	// Unbiased sample variance over the batch mean's estimator.
	varDf = acc / float64(batch-1) / float64(batch)
	return df, varDf
}

func clampVariance(v float64) float64 {
	if v < minObservationVariance {
		return minObservationVariance
	}
	return v
}
