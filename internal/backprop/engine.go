package backprop

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/parallel"
	"github.com/born-ml/cockpit/internal/tensor"
)

// Engine executes the backward side of one training step: it sets the
// batch gradient on every trainable parameter and materializes each
// requested extension as a savefield.
//
// Per step the savefields follow a strict lifecycle: written exactly once
// here, read by quantities, deleted by the cockpit. The engine never reads
// fields from previous steps.
type Engine struct {
	log      *logrus.Entry
	parallel parallel.Config
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Logger receives debug output; nil uses the standard logger.
	Logger *logrus.Logger
	// Parallel controls how transform application is spread over workers.
	// The zero value disables parallelism.
	Parallel parallel.Config
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		log:      logger.WithField("component", "engine"),
		parallel: cfg.Parallel,
	}
}

// Backward materializes the batch gradient and all requested extensions on
// params.
//
// createGraph is advisory at this layer: problems keep their HVP closure
// alive on the Loss value regardless, and quantities honor the contract of
// only calling it when they requested graph retention. The flag is logged
// so overhead is visible when diagnosing slow steps.
func (e *Engine) Backward(loss Loss, params []*nn.Parameter, exts []Extension, createGraph bool) error {
	if loss.Gradients == nil {
		return fmt.Errorf("backprop: problem does not expose gradients: %w", ErrUnsupported)
	}

	grads := loss.Gradients()
	if len(grads) != len(params) {
		return fmt.Errorf("backprop: got %d gradients for %d parameters", len(grads), len(params))
	}
	for i, p := range params {
		p.SetGrad(grads[i])
	}

	e.log.WithFields(logrus.Fields{
		"extensions":   len(exts),
		"create_graph": createGraph,
	}).Debug("backward pass")

	// Per-sample gradients are shared by several extensions; compute once.
	var batchGrads [][]*tensor.Tensor
	fetchBatchGrads := func() ([][]*tensor.Tensor, error) {
		if batchGrads != nil {
			return batchGrads, nil
		}
		if loss.BatchGradients == nil {
			return nil, fmt.Errorf("backprop: problem does not expose per-sample gradients: %w", ErrUnsupported)
		}
		batchGrads = loss.BatchGradients()
		if len(batchGrads) != len(params) {
			return nil, fmt.Errorf("backprop: got per-sample gradients for %d parameters, want %d",
				len(batchGrads), len(params))
		}
		return batchGrads, nil
	}

	for _, ext := range exts {
		if err := e.materialize(loss, params, ext, fetchBatchGrads); err != nil {
			return fmt.Errorf("backprop: extension %q: %w", ext.Identity(), err)
		}
	}
	return nil
}

func (e *Engine) materialize(
	loss Loss,
	params []*nn.Parameter,
	ext Extension,
	fetchBatchGrads func() ([][]*tensor.Tensor, error),
) error {
	switch ext := ext.(type) {
	case BatchGrad:
		bg, err := fetchBatchGrads()
		if err != nil {
			return err
		}
		for i, p := range params {
			p.SetField(FieldGradBatch, bg[i])
		}

	case DiagHessian:
		if loss.HessianDiag == nil {
			return fmt.Errorf("problem does not expose the Hessian diagonal: %w", ErrUnsupported)
		}
		diags := loss.HessianDiag()
		for i, p := range params {
			p.SetField(FieldDiagHessian, diags[i])
		}

	case DiagGGNExact:
		if loss.GGNDiag == nil {
			return fmt.Errorf("problem does not expose the GGN diagonal: %w", ErrUnsupported)
		}
		diags := loss.GGNDiag(0)
		for i, p := range params {
			p.SetField(FieldDiagGGNExact, diags[i])
		}

	case DiagGGNMC:
		if loss.GGNDiag == nil {
			return fmt.Errorf("problem does not expose the GGN diagonal: %w", ErrUnsupported)
		}
		diags := loss.GGNDiag(ext.MCSamples)
		for i, p := range params {
			p.SetField(FieldDiagGGNMC, diags[i])
		}

	case BatchGradTransforms:
		bg, err := fetchBatchGrads()
		if err != nil {
			return err
		}
		results := make([]map[string]*tensor.Tensor, len(params))
		parallel.For(len(params), func(i int) {
			out := make(map[string]*tensor.Tensor, len(ext.Transforms()))
			for key, transform := range ext.Transforms() {
				out[key] = transform(params[i], bg[i])
			}
			results[i] = out
		}, e.parallel)
		for i, p := range params {
			p.SetField(FieldGradBatchTransforms, results[i])
		}

	default:
		return fmt.Errorf("unknown extension kind %q", ext.Kind())
	}
	return nil
}
