package backprop

import (
	"errors"

	"github.com/born-ml/cockpit/internal/tensor"
)

// ErrUnsupported means the training problem does not provide a capability
// an extension request or quantity needs. Returned wrapped; match with
// errors.Is.
var ErrUnsupported = errors.New("problem does not support the requested capability")

// Loss carries one step's batch loss together with the differentiation
// capabilities the training problem exposes. The closures are evaluated
// lazily by the engine, so a step only pays for what its extension
// requests actually need.
//
// Individual holds the unreduced per-sample losses; its presence is a hard
// requirement of the cockpit (variance-based quantities need it).
//
// HVP implements Hessian-vector products against the batch loss. It is
// only valid while the computation graph is retained, i.e. when some
// quantity requested create-graph for the step; it is nil otherwise or
// when the problem cannot provide it.
type Loss struct {
	// Value is the scalar batch loss (mean over Individual).
	Value float64

	// Individual holds the per-sample losses.
	Individual []float64

	// Gradients returns the batch gradient per trainable parameter.
	Gradients func() []*tensor.Tensor

	// BatchGradients returns per-sample gradients, indexed
	// [parameter][sample]. Nil if the problem cannot provide them.
	BatchGradients func() [][]*tensor.Tensor

	// HessianDiag returns the Hessian diagonal of the batch loss per
	// parameter. Nil if unavailable.
	HessianDiag func() []*tensor.Tensor

	// GGNDiag returns the (exact for mcSamples == 0, else Monte-Carlo
	// estimated) generalized Gauss-Newton diagonal per parameter. Nil if
	// unavailable.
	GGNDiag func(mcSamples int) []*tensor.Tensor

	// HVP maps parameter-shaped vectors to Hessian-vector products.
	HVP func(vs []*tensor.Tensor) []*tensor.Tensor
}

// BatchSize returns the number of samples in the batch.
func (l Loss) BatchSize() int {
	return len(l.Individual)
}

// LossVariance returns the unbiased sample variance of the individual
// losses. Returns 0 for batches of size < 2.
func (l Loss) LossVariance() float64 {
	n := len(l.Individual)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range l.Individual {
		mean += v
	}
	mean /= float64(n)

	var acc float64
	for _, v := range l.Individual {
		d := v - mean
		acc += d * d
	}
	return acc / float64(n-1)
}
