// Package optim implements the optimizers used by the built-in training
// runner. Diagnostics do not depend on this package; it exists so the
// runner and the integration tests can drive real parameter updates.
package optim

import (
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/tensor"
)

// SGD implements stochastic gradient descent with classical momentum:
//
//	v <- momentum * v + grad
//	p <- p - lr * v
//
// Momentum 0 is plain SGD.
type SGD struct {
	lr       float32
	momentum float32
	velocity map[*nn.Parameter]*tensor.Tensor
}

// NewSGD creates an SGD optimizer.
func NewSGD(lr, momentum float32) *SGD {
	return &SGD{
		lr:       lr,
		momentum: momentum,
		velocity: make(map[*nn.Parameter]*tensor.Tensor),
	}
}

// Step applies one update to every parameter with a gradient. Parameters
// without gradients (frozen, or untouched by the backward pass) are
// skipped.
func (s *SGD) Step(params []*nn.Parameter) {
	for _, p := range params {
		grad := p.Grad()
		if grad == nil || !p.RequiresGrad() {
			continue
		}

		update := grad
		if s.momentum != 0 {
			v, ok := s.velocity[p]
			if !ok {
				v = tensor.Zeros(grad.Shape())
				s.velocity[p] = v
			}
			v.ScaleInPlace(s.momentum)
			v.AddInPlace(grad)
			update = v
		}

		data := p.Tensor().Data()
		for i, u := range update.Data() {
			data[i] -= s.lr * u
		}
	}
}

// ZeroGrad clears the gradients of all parameters.
func (s *SGD) ZeroGrad(params []*nn.Parameter) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// LearningRate returns the current learning rate.
func (s *SGD) LearningRate() float32 { return s.lr }

// SetLearningRate updates the learning rate.
func (s *SGD) SetLearningRate(lr float32) { s.lr = lr }

// Momentum returns the momentum coefficient.
func (s *SGD) Momentum() float32 { return s.momentum }
