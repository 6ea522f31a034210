package quantities

import (
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/tensor"
)

// Shared per-sample gradient transforms.
//
// These are package-level functions on purpose: quantities that request
// the same statistic reference the same function value, so the cockpit's
// transform merge recognizes them as identical and key collisions between
// quantities are accepted instead of rejected.

// Transform keys used by the built-in quantities.
const (
	keyBatchL2        = "batch_l2"
	keyBatchDot       = "batch_dot"
	keySumGradSquared = "sum_grad_squared"
)

// BatchL2Transform computes each sample's squared gradient l2 norm for
// one parameter, returning a tensor of shape [batch_size].
func BatchL2Transform(_ *nn.Parameter, batchGrad []*tensor.Tensor) *tensor.Tensor {
	out := tensor.New(tensor.Shape{len(batchGrad)})
	data := out.Data()
	for n, g := range batchGrad {
		data[n] = g.SumSquares()
	}
	return out
}

// BatchDotTransform computes each sample's gradient inner product with the
// batch (mean) gradient for one parameter, returning a tensor of shape
// [batch_size].
func BatchDotTransform(_ *nn.Parameter, batchGrad []*tensor.Tensor) *tensor.Tensor {
	mean := tensor.Mean(batchGrad)
	out := tensor.New(tensor.Shape{len(batchGrad)})
	data := out.Data()
	for n, g := range batchGrad {
		data[n] = g.Dot(mean)
	}
	return out
}

// SumGradSquaredTransform computes the coordinate-wise sum of squared
// per-sample gradients for one parameter, returning a tensor of the
// parameter's shape.
func SumGradSquaredTransform(_ *nn.Parameter, batchGrad []*tensor.Tensor) *tensor.Tensor {
	if len(batchGrad) == 0 {
		panic("SumGradSquaredTransform: empty batch")
	}
	out := tensor.New(batchGrad[0].Shape())
	data := out.Data()
	for _, g := range batchGrad {
		for i, v := range g.Data() {
			data[i] += v * v
		}
	}
	return out
}
