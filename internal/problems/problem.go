// Package problems provides the training problems the runner and the
// integration tests drive diagnostics on. Each problem owns a model, a
// synthetic data source, and the differentiation capabilities it can
// honestly provide; problems that cannot provide a capability leave the
// corresponding closure nil and the cockpit fails fast when a configured
// quantity needs it.
package problems

import (
	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

// Problem is a training problem the runner can iterate on.
type Problem interface {
	// Name identifies the problem in logs and CLI flags.
	Name() string

	// Model returns the module tree under diagnosis.
	Model() nn.Module

	// Parameters returns the trainable parameters, in the order all
	// gradient slices use.
	Parameters() []*nn.Parameter

	// Loss draws the next mini-batch, runs the forward pass, and returns
	// the batch loss with the problem's differentiation capabilities
	// attached.
	Loss() backprop.Loss
}
