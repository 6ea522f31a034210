// Package nn implements the minimal neural-network surface the cockpit
// diagnoses: parameters with gradients and materialized backward-pass
// fields, a module tree, and a few layers used by the built-in training
// problems.
//
//   - Module interface: Forward / Parameters / Children
//   - Parameter: trainable tensor + gradient + named savefields
//   - Linear, ReLU, Sequential: enough to build small MLPs
//   - MSELoss: batch loss with per-sample (unreduced) access
//
// Leaf modules buffer their last input/output pair the way a backward
// engine does; the cockpit strips those buffers after every tracked step.
package nn

import (
	"github.com/born-ml/cockpit/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Children exposes the module tree so buffer reclamation can walk it
// without knowing concrete types; leaf modules return nil.
type Module interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor) *tensor.Tensor

	// Parameters returns all trainable parameters of this module,
	// including nested module parameters.
	Parameters() []*Parameter

	// Children returns the direct submodules, nil for leaves.
	Children() []Module
}

// IOBuffers is implemented by leaf modules that retain their last
// forward-pass input and output. The cockpit clears these buffers after
// each tracked step to bound memory.
type IOBuffers interface {
	// ClearIO drops the buffered input/output pair. Clearing buffers
	// that were never set is a no-op, not an error.
	ClearIO()

	// HasIO reports whether an input/output pair is currently buffered.
	HasIO() bool
}

// ioBuffers is the embeddable implementation of IOBuffers used by the
// leaf modules in this package.
type ioBuffers struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

func (io *ioBuffers) storeIO(input, output *tensor.Tensor) {
	io.input = input
	io.output = output
}

func (io *ioBuffers) ClearIO() {
	io.input = nil
	io.output = nil
}

func (io *ioBuffers) HasIO() bool {
	return io.input != nil || io.output != nil
}
