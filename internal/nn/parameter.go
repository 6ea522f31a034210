package nn

import (
	"github.com/born-ml/cockpit/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Beyond the value and its gradient, a parameter carries named
// "savefields": buffers a backward engine materializes on request (for
// example per-sample gradients or the Hessian diagonal). Savefields are
// written once per step by the engine, read by diagnostic quantities, and
// deleted by the cockpit before the next step.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	weight.SetField("diag_h", diag)
//	if v, ok := weight.Field("diag_h"); ok {
//	    // ... consume the buffer
//	}
//	weight.DeleteField("diag_h")
type Parameter struct {
	name         string
	tensor       *tensor.Tensor
	grad         *tensor.Tensor
	requiresGrad bool
	fields       map[string]any
}

// NewParameter creates a new trainable parameter.
//
// The gradient is allocated by the backward engine on the first backward
// pass; it is nil until then.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{
		name:         name,
		tensor:       t,
		requiresGrad: true,
		fields:       make(map[string]any),
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// Grad returns the gradient tensor, nil before the first backward pass.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter) SetGrad(grad *tensor.Tensor) {
	p.grad = grad
}

// ZeroGrad clears the gradient tensor.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}

// RequiresGrad reports whether this parameter is trainable.
func (p *Parameter) RequiresGrad() bool {
	return p.requiresGrad
}

// SetRequiresGrad toggles trainability. Frozen parameters are skipped by
// optimizers and by the cockpit's parameter collection.
func (p *Parameter) SetRequiresGrad(v bool) {
	p.requiresGrad = v
}

// SetField stores a materialized buffer under the given savefield name,
// replacing any previous value.
func (p *Parameter) SetField(name string, value any) {
	p.fields[name] = value
}

// Field returns the buffer stored under the given savefield name.
func (p *Parameter) Field(name string) (any, bool) {
	v, ok := p.fields[name]
	return v, ok
}

// HasField reports whether a buffer is stored under the savefield name.
func (p *Parameter) HasField(name string) bool {
	_, ok := p.fields[name]
	return ok
}

// DeleteField removes the buffer stored under the savefield name.
// Deleting a field that was never set is a no-op: absence is not failure.
func (p *Parameter) DeleteField(name string) {
	delete(p.fields, name)
}

// FieldNames returns the names of all currently materialized savefields.
func (p *Parameter) FieldNames() []string {
	names := make([]string, 0, len(p.fields))
	for name := range p.fields {
		names = append(names, name)
	}
	return names
}
