package quantities

// Schedule decides whether a quantity is tracked at a given step.
//
// Schedules must be deterministic, stateless and side-effect-free: the
// cockpit evaluates them several times per step (once while collecting
// extension requests, again while computing), and different quantities may
// share one schedule value.
type Schedule func(step int) bool

// Linear returns a schedule that fires every interval steps, starting at
// step 0. Linear(1) tracks every step.
func Linear(interval int) Schedule {
	return LinearFrom(interval, 0)
}

// LinearFrom returns a schedule that fires every interval steps, starting
// at offset.
func LinearFrom(interval, offset int) Schedule {
	if interval <= 0 {
		panic("quantities: schedule interval must be positive")
	}
	return func(step int) bool {
		shifted := step - offset
		return shifted >= 0 && shifted%interval == 0
	}
}

// Never returns a schedule that never fires. Useful for disabling a
// quantity without removing it from a configuration.
func Never() Schedule {
	return func(int) bool { return false }
}
