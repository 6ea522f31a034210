package quantities

import (
	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

// Loss tracks the mini-batch training loss.
type Loss struct {
	baseQuantity
}

// NewLoss creates a Loss quantity.
func NewLoss(schedule Schedule) *Loss {
	return &Loss{baseQuantity: newBase("loss", schedule)}
}

// Extensions returns nil; the batch loss needs no backward-pass extras.
func (q *Loss) Extensions(step int) []backprop.Extension {
	return nil
}

// Compute records the batch loss value.
func (q *Loss) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	q.store(step, "loss", loss.Value)
	return nil
}
