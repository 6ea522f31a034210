package cockpit

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/quantities"
)

// Track runs one diagnostic step on the given batch loss.
//
// The step cycle:
//
//  1. Aggregate the quantities' extension requests for this step.
//  2. Run the backward pass, materializing savefields on the parameters.
//  3. Compute the cheap tier, reclaim its savefields, then compute the
//     expensive tier on the retained graph.
//  4. Reclaim all remaining savefields and strip module io buffers.
//
// Gradients survive Track; the optimizer still needs them. A failure in
// any phase aborts the step but buffers are reclaimed regardless, so a
// failed step never leaks materialized fields into the next one.
func (c *Cockpit) Track(step int, loss backprop.Loss) (err error) {
	if loss.BatchSize() == 0 {
		return fmt.Errorf("cockpit: step %d: loss carries no individual losses: %w",
			step, ErrUnsupportedProblem)
	}

	exts, err := aggregateExtensions(c.quantities, step)
	if err != nil {
		return fmt.Errorf("cockpit: step %d: %w", step, err)
	}
	createGraph := wantsCreateGraph(c.quantities, step)

	c.log.WithFields(logrus.Fields{
		"step":         step,
		"extensions":   len(exts),
		"create_graph": createGraph,
	}).Debug("tracking step")

	defer func() {
		c.freeSavefields(exts)
		c.stripIO()
	}()

	if err := c.engine.Backward(loss, c.params, exts, createGraph); err != nil {
		return fmt.Errorf("cockpit: step %d: %w", step, err)
	}

	for _, tier := range []quantities.Tier{quantities.TierCheap, quantities.TierExpensive} {
		if err := c.computeTier(tier, step, loss); err != nil {
			return fmt.Errorf("cockpit: step %d: %w", step, err)
		}
		// Savefields only feed the cheap tier; dropping them before the
		// expensive tier runs keeps its peak memory down.
		if tier == quantities.TierCheap {
			c.freeSavefields(exts)
		}
	}
	return nil
}

func (c *Cockpit) computeTier(tier quantities.Tier, step int, loss backprop.Loss) error {
	for _, q := range c.quantities {
		if q.Tier() != tier {
			continue
		}
		if err := q.Compute(step, c.params, loss); err != nil {
			return fmt.Errorf("quantity %q: %w", q.Name(), err)
		}
	}
	return nil
}

// freeSavefields deletes every aggregated savefield from every parameter.
// Deleting a field that was never materialized (or already freed) is a
// no-op.
func (c *Cockpit) freeSavefields(exts []backprop.Extension) {
	for _, p := range c.params {
		for _, ext := range exts {
			p.DeleteField(ext.SaveField())
		}
	}
}

// stripIO clears the buffered input/output pair on every module in the
// tree that retains one. The walk is an explicit stack, no recursion.
func (c *Cockpit) stripIO() {
	stack := []nn.Module{c.model}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if io, ok := m.(nn.IOBuffers); ok {
			io.ClearIO()
		}
		stack = append(stack, m.Children()...)
	}
}
