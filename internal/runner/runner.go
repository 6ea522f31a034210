// Package runner drives a training loop with diagnostics attached: it
// validates the quantity configuration, steps the problem and optimizer,
// tracks every step through the cockpit, records per-epoch statistics,
// and writes the diagnostics log when the run finishes.
package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/cockpit/internal/cockpit"
	"github.com/born-ml/cockpit/internal/optim"
	"github.com/born-ml/cockpit/internal/problems"
	"github.com/born-ml/cockpit/internal/quantities"
)

// Config configures one training run.
type Config struct {
	// Problem is the training problem to run. Required.
	Problem problems.Problem

	// Quantities are the diagnostics to track. Required; must contain
	// exactly one Time quantity whose schedule covers the first and last
	// step, and every quantity must be fresh (empty output).
	Quantities []quantities.Quantity

	// Steps is the number of training steps. Required, positive.
	Steps int

	// EpochLength is the number of steps per epoch for the per-epoch log
	// records. 0 disables epoch logging.
	EpochLength int

	// LearningRate and Momentum configure the SGD optimizer.
	LearningRate float32
	Momentum     float32

	// LogPath is where the diagnostics log is written (".json" appended).
	// Empty skips writing.
	LogPath string

	// Logger receives structured output; nil uses the standard logger.
	Logger *logrus.Logger
}

// Runner executes one configured training run.
type Runner struct {
	cfg     Config
	cockpit *cockpit.Cockpit
	sgd     *optim.SGD
	log     *logrus.Entry
	runID   string
}

// New validates the configuration and builds the run.
func New(cfg Config) (*Runner, error) {
	if cfg.Problem == nil {
		return nil, fmt.Errorf("runner: config needs a problem")
	}
	if cfg.Steps <= 0 {
		return nil, fmt.Errorf("runner: config needs a positive step count, got %d", cfg.Steps)
	}
	if err := checkTimer(cfg.Quantities, cfg.Steps); err != nil {
		return nil, err
	}
	if err := checkFresh(cfg.Quantities); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	warnEarlyStopping(logger, cfg.Quantities, cfg.Momentum)

	pit, err := cockpit.New(cockpit.Config{
		Model:      cfg.Problem.Model(),
		Quantities: cfg.Quantities,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	return &Runner{
		cfg:     cfg,
		cockpit: pit,
		sgd:     optim.NewSGD(cfg.LearningRate, cfg.Momentum),
		log: logger.WithFields(logrus.Fields{
			"component": "runner",
			"run_id":    runID,
			"problem":   cfg.Problem.Name(),
		}),
		runID: runID,
	}, nil
}

// Cockpit returns the run's cockpit, mainly for inspecting outputs in
// tests.
func (r *Runner) Cockpit() *cockpit.Cockpit {
	return r.cockpit
}

// Run executes the training loop. The context cancels between steps.
func (r *Runner) Run(ctx context.Context) error {
	r.log.WithField("steps", r.cfg.Steps).Info("run started")
	params := r.cfg.Problem.Parameters()

	for step := 0; step < r.cfg.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("runner: step %d: %w", step, err)
		}

		loss := r.cfg.Problem.Loss()
		if err := r.cockpit.Track(step, loss); err != nil {
			return err
		}
		r.sgd.Step(params)

		if r.cfg.EpochLength > 0 && (step+1)%r.cfg.EpochLength == 0 {
			r.logEpoch(step, (step+1)/r.cfg.EpochLength, loss.Value)
		}
		r.sgd.ZeroGrad(params)
	}

	if r.cfg.LogPath != "" {
		if err := r.cockpit.Write(r.cfg.LogPath, r.metadata()); err != nil {
			return err
		}
	}
	r.log.Info("run finished")
	return nil
}

// logEpoch records epoch statistics. Train loss is the last batch loss;
// valid and test losses come from fresh batches evaluated without
// tracking.
func (r *Runner) logEpoch(step, epoch int, trainLoss float64) {
	valid := r.cfg.Problem.Loss().Value
	test := r.cfg.Problem.Loss().Value
	r.cockpit.Log(step, cockpit.EpochInfo{
		Epoch:        epoch,
		TrainLoss:    trainLoss,
		ValidLoss:    valid,
		TestLoss:     test,
		LearningRate: float64(r.sgd.LearningRate()),
	})
}

func (r *Runner) metadata() map[string]any {
	return map[string]any{
		"run_id":        r.runID,
		"problem":       r.cfg.Problem.Name(),
		"steps":         r.cfg.Steps,
		"learning_rate": r.sgd.LearningRate(),
		"momentum":      r.sgd.Momentum(),
	}
}

// RunAll executes several independent runs concurrently. The first
// failure cancels the rest.
func RunAll(ctx context.Context, cfgs []Config) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, cfg := range cfgs {
		cfg := cfg
		g.Go(func() error {
			r, err := New(cfg)
			if err != nil {
				return err
			}
			return r.Run(ctx)
		})
	}
	return g.Wait()
}
