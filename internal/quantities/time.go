package quantities

import (
	"time"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

// Time tracks wall-clock seconds elapsed since the quantity's first
// tracked step. Pairing the timestamps of consecutive tracked steps gives
// per-iteration cost; the cockpit rejects configurations with more than
// one Time instance so the pairing stays unambiguous.
type Time struct {
	baseQuantity

	now   func() time.Time
	start time.Time
}

// NewTime creates a Time quantity.
func NewTime(schedule Schedule) *Time {
	return &Time{
		baseQuantity: newBase("time", schedule),
		now:          time.Now,
	}
}

// Extensions returns nil; timing needs nothing from the backward pass.
func (q *Time) Extensions(step int) []backprop.Extension {
	return nil
}

// Compute records the elapsed seconds.
func (q *Time) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	t := q.now()
	if q.start.IsZero() {
		q.start = t
	}
	q.store(step, "time", t.Sub(q.start).Seconds())
	return nil
}
