// Package cockpit implements the diagnostics orchestrator: it aggregates
// the backward-pass requests of the configured quantities, drives the
// engine, computes quantities in cost order, reclaims materialized
// buffers after every step, and merges the results into a JSON log.
package cockpit

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/quantities"
)

// Config configures a Cockpit.
type Config struct {
	// Model is the module tree under diagnosis. Required; the cockpit
	// walks it to collect parameters and to strip io buffers.
	Model nn.Module

	// Quantities are the diagnostics to track. Required, non-empty.
	Quantities []quantities.Quantity

	// Engine runs the backward side of each step. Nil uses a default
	// engine with sequential transform application.
	Engine *backprop.Engine

	// Logger receives structured output; nil uses the standard logger.
	Logger *logrus.Logger
}

// Cockpit tracks diagnostic quantities over a training run.
//
// Per step, Track runs five phases: aggregate the quantities' extension
// requests, run the backward pass, compute quantities tier by tier,
// reclaim materialized buffers, and leave each quantity's output ready
// for collection. Quantities own their outputs; Write merges them.
type Cockpit struct {
	model      nn.Module
	params     []*nn.Parameter
	quantities []quantities.Quantity
	engine     *backprop.Engine
	log        *logrus.Entry

	epochLogs []epochRecord
}

// New creates a Cockpit.
//
// Configurations with more than one Time quantity are rejected: pairing
// timestamps across steps would be ambiguous.
func New(cfg Config) (*Cockpit, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("cockpit: config needs a model")
	}
	if len(cfg.Quantities) == 0 {
		return nil, fmt.Errorf("cockpit: config needs at least one quantity")
	}
	if n := countTimers(cfg.Quantities); n > 1 {
		return nil, fmt.Errorf("cockpit: %d Time quantities configured, want at most one", n)
	}

	engine := cfg.Engine
	if engine == nil {
		engine = backprop.NewEngine(backprop.EngineConfig{Logger: cfg.Logger})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Cockpit{
		model:      cfg.Model,
		params:     trainableParams(cfg.Model),
		quantities: cfg.Quantities,
		engine:     engine,
		log:        logger.WithField("component", "cockpit"),
	}, nil
}

// Quantities returns the tracked quantities.
func (c *Cockpit) Quantities() []quantities.Quantity {
	return c.quantities
}

func countTimers(qs []quantities.Quantity) int {
	var n int
	for _, q := range qs {
		if _, ok := q.(*quantities.Time); ok {
			n++
		}
	}
	return n
}

func trainableParams(model nn.Module) []*nn.Parameter {
	var out []*nn.Parameter
	for _, p := range model.Parameters() {
		if p.RequiresGrad() {
			out = append(out, p)
		}
	}
	return out
}
