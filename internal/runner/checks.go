package runner

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/cockpit/internal/quantities"
)

// checkTimer enforces the timing contract: exactly one Time quantity,
// scheduled at the first and last step, so every other quantity's cost
// can be bracketed by timestamps.
func checkTimer(qs []quantities.Quantity, steps int) error {
	var timers []*quantities.Time
	for _, q := range qs {
		if t, ok := q.(*quantities.Time); ok {
			timers = append(timers, t)
		}
	}
	if len(timers) != 1 {
		return fmt.Errorf("runner: config needs exactly one Time quantity, got %d", len(timers))
	}

	t := timers[0]
	last := steps - 1
	if !t.ShouldCompute(0) || !t.ShouldCompute(last) {
		return fmt.Errorf("runner: the Time quantity must track the first and last step (0 and %d)", last)
	}
	return nil
}

// checkFresh rejects quantities that already carry output from a previous
// run; reusing them would interleave two runs' results in one log.
func checkFresh(qs []quantities.Quantity) error {
	for _, q := range qs {
		if len(q.Output()) != 0 {
			return fmt.Errorf("runner: quantity %q carries output from a previous run; use a fresh instance", q.Name())
		}
	}
	return nil
}

// warnEarlyStopping flags the one configuration where a quantity is
// well-defined but misleading: the early stopping criterion is derived
// for momentum-free SGD.
func warnEarlyStopping(logger *logrus.Logger, qs []quantities.Quantity, momentum float32) {
	if momentum == 0 {
		return
	}
	for _, q := range qs {
		if _, ok := q.(*quantities.EarlyStopping); ok {
			logger.WithField("momentum", momentum).
				Warn("early stopping criterion assumes momentum-free SGD; its scale will be off")
			return
		}
	}
}
