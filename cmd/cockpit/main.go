// Package main provides the cockpit CLI: a demo training runner with
// diagnostics attached.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/born-ml/cockpit/internal/problems"
	"github.com/born-ml/cockpit/internal/quantities"
	"github.com/born-ml/cockpit/internal/runner"
)

const version = "v0.0.1-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cockpit",
		Short: "Training diagnostics for deep-learning optimizers",
	}
	root.AddCommand(newVersionCmd(), newRunCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cockpit %s\n", version)
		},
	}
}

func newRunCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Train a built-in problem with diagnostics attached",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraining(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("problem", "noisy_quadratic", "training problem (noisy_quadratic, regression_mlp)")
	flags.String("quantities", quantities.LabelEconomy, "quantity set (economy, business, full)")
	flags.Int("steps", 100, "number of training steps")
	flags.Int("interval", 1, "schedule interval between tracked steps")
	flags.Int("epoch-length", 25, "steps per epoch for epoch logging (0 disables)")
	flags.Float32("lr", 0.01, "learning rate")
	flags.Float32("momentum", 0, "momentum coefficient")
	flags.String("out", "cockpit_log", "log path (\".json\" appended)")
	flags.Bool("verbose", false, "enable debug logging")

	v.SetEnvPrefix("COCKPIT")
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	return cmd
}

func runTraining(ctx context.Context, v *viper.Viper) error {
	logger := logrus.New()
	if v.GetBool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	}

	problem, err := buildProblem(v.GetString("problem"))
	if err != nil {
		return err
	}

	steps := v.GetInt("steps")
	interval := v.GetInt("interval")
	qs, err := quantities.Configured(v.GetString("quantities"), quantities.Linear(interval))
	if err != nil {
		return err
	}
	if steps > 1 && (steps-1)%interval != 0 {
		return fmt.Errorf("interval %d does not track the final step %d; adjust --steps or --interval",
			interval, steps-1)
	}

	r, err := runner.New(runner.Config{
		Problem:      problem,
		Quantities:   qs,
		Steps:        steps,
		EpochLength:  v.GetInt("epoch-length"),
		LearningRate: float32(v.GetFloat64("lr")),
		Momentum:     float32(v.GetFloat64("momentum")),
		LogPath:      v.GetString("out"),
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

func buildProblem(name string) (problems.Problem, error) {
	switch name {
	case "noisy_quadratic":
		return problems.NewNoisyQuadratic(problems.NoisyQuadraticConfig{
			Curvature: []float32{1, 2, 4, 8},
			Noise:     0.5,
			BatchSize: 32,
			Seed:      1,
		}), nil
	case "regression_mlp":
		return problems.NewRegressionMLP(problems.RegressionMLPConfig{
			InFeatures:  4,
			Hidden:      8,
			OutFeatures: 1,
			BatchSize:   32,
			Noise:       0.1,
			Seed:        1,
		}), nil
	default:
		return nil, fmt.Errorf("unknown problem %q (want noisy_quadratic or regression_mlp)", name)
	}
}
