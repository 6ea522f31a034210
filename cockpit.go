// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cockpit provides training-time diagnostics for deep-learning
// optimizers: a set of scheduled quantities (loss, gradient statistics,
// curvature and noise estimates, the local step-size alpha), an
// orchestrator that aggregates their backward-pass requests and keeps
// memory bounded, and a JSON log of everything computed.
//
// Example:
//
//	sched := cockpit.Linear(10)
//	pit, err := cockpit.New(cockpit.Config{
//	    Model:      model,
//	    Quantities: cockpit.Economy(sched),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for step := 0; step < steps; step++ {
//	    loss := problem.Loss()
//	    if err := pit.Track(step, loss); err != nil {
//	        log.Fatal(err)
//	    }
//	    optimizer.Step(params)
//	}
//	err = pit.Write("logs/run", nil)
package cockpit

import (
	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/cockpit"
	"github.com/born-ml/cockpit/internal/quantities"
)

// Orchestrator types.

// Cockpit tracks diagnostic quantities over a training run.
type Cockpit = cockpit.Cockpit

// Config configures a Cockpit.
type Config = cockpit.Config

// EpochInfo carries per-epoch training statistics for Cockpit.Log.
type EpochInfo = cockpit.EpochInfo

// New creates a Cockpit.
func New(cfg Config) (*Cockpit, error) {
	return cockpit.New(cfg)
}

// Sentinel errors, matched with errors.Is.
var (
	ErrTransformConflict  = cockpit.ErrTransformConflict
	ErrDuplicateRequest   = cockpit.ErrDuplicateRequest
	ErrLogKeyConflict     = cockpit.ErrLogKeyConflict
	ErrUnsupportedProblem = cockpit.ErrUnsupportedProblem
)

// Quantity surface.

// Quantity is one tracked diagnostic.
type Quantity = quantities.Quantity

// Schedule decides which steps a quantity tracks.
type Schedule = quantities.Schedule

// Output maps steps to the values a quantity emitted.
type Output = quantities.Output

// Loss carries one step's batch loss and the problem's differentiation
// capabilities.
type Loss = backprop.Loss

// Linear returns a schedule firing every interval steps.
func Linear(interval int) Schedule {
	return quantities.Linear(interval)
}

// LinearFrom returns a schedule firing every interval steps from offset.
func LinearFrom(interval, offset int) Schedule {
	return quantities.LinearFrom(interval, offset)
}

// Economy returns the cheap built-in quantity set.
func Economy(schedule Schedule) []Quantity {
	return quantities.Economy(schedule)
}

// Business returns the economy set plus second-order diagnostics.
func Business(schedule Schedule) []Quantity {
	return quantities.Business(schedule)
}

// Full returns every built-in quantity.
func Full(schedule Schedule) []Quantity {
	return quantities.Full(schedule)
}

// Configured resolves a quantity-set label ("economy", "business",
// "full") to its quantities.
func Configured(label string, schedule Schedule) ([]Quantity, error) {
	return quantities.Configured(label, schedule)
}
