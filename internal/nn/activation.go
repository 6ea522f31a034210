package nn

import (
	"github.com/born-ml/cockpit/internal/tensor"
)

// ReLU applies the rectified linear unit elementwise: max(0, x).
type ReLU struct {
	ioBuffers
}

// NewReLU creates a new ReLU activation layer.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies ReLU elementwise and buffers the input/output pair.
func (r *ReLU) Forward(input *tensor.Tensor) *tensor.Tensor {
	output := tensor.New(input.Shape())
	in := input.Data()
	out := output.Data()
	for i, v := range in {
		if v > 0 {
			out[i] = v
		}
	}
	r.storeIO(input, output)
	return output
}

// Parameters returns nil; activations have no trainable parameters.
func (r *ReLU) Parameters() []*Parameter {
	return nil
}

// Children returns nil; ReLU is a leaf module.
func (r *ReLU) Children() []Module {
	return nil
}
