package cockpit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/problems"
	"github.com/born-ml/cockpit/internal/quantities"
)

// testQuantity is a minimal Quantity for aggregation and log-merge tests.
type testQuantity struct {
	name   string
	exts   []backprop.Extension
	output quantities.Output
}

func (q *testQuantity) Name() string                                { return q.name }
func (q *testQuantity) ShouldCompute(int) bool                      { return true }
func (q *testQuantity) Extensions(int) []backprop.Extension         { return q.exts }
func (q *testQuantity) CreateGraph(int) bool                        { return false }
func (q *testQuantity) Tier() quantities.Tier                       { return quantities.TierCheap }
func (q *testQuantity) Output() quantities.Output                   { return q.output }
func (q *testQuantity) Compute(int, []*nn.Parameter, backprop.Loss) error { return nil }

func quadraticProblem() *problems.NoisyQuadratic {
	return problems.NewNoisyQuadratic(problems.NoisyQuadraticConfig{
		Curvature: []float32{1, 2, 4, 8},
		Noise:     0.5,
		BatchSize: 8,
		Seed:      1,
	})
}

func TestAggregateMergesSharedTransforms(t *testing.T) {
	shared := backprop.NewBatchGradTransforms(map[string]backprop.Transform{
		"batch_l2": quantities.BatchL2Transform,
	})
	qs := []quantities.Quantity{
		&testQuantity{name: "a", exts: []backprop.Extension{shared}},
		&testQuantity{name: "b", exts: []backprop.Extension{shared}},
	}

	exts, err := aggregateExtensions(qs, 0)
	require.NoError(t, err)
	require.Len(t, exts, 1)

	merged, ok := exts[0].(backprop.BatchGradTransforms)
	require.True(t, ok)
	assert.Len(t, merged.Transforms(), 1)
}

func TestAggregateUnionsTransformKeys(t *testing.T) {
	qs := []quantities.Quantity{
		&testQuantity{name: "a", exts: []backprop.Extension{
			backprop.NewBatchGradTransforms(map[string]backprop.Transform{
				"batch_l2": quantities.BatchL2Transform,
			}),
		}},
		&testQuantity{name: "b", exts: []backprop.Extension{
			backprop.NewBatchGradTransforms(map[string]backprop.Transform{
				"batch_dot": quantities.BatchDotTransform,
			}),
		}},
	}

	exts, err := aggregateExtensions(qs, 0)
	require.NoError(t, err)
	require.Len(t, exts, 1)
	assert.Len(t, exts[0].(backprop.BatchGradTransforms).Transforms(), 2)
}

func TestAggregateTransformConflict(t *testing.T) {
	qs := []quantities.Quantity{
		&testQuantity{name: "a", exts: []backprop.Extension{
			backprop.NewBatchGradTransforms(map[string]backprop.Transform{
				"stat": quantities.BatchL2Transform,
			}),
		}},
		&testQuantity{name: "b", exts: []backprop.Extension{
			backprop.NewBatchGradTransforms(map[string]backprop.Transform{
				"stat": quantities.BatchDotTransform,
			}),
		}},
	}

	_, err := aggregateExtensions(qs, 0)
	assert.ErrorIs(t, err, ErrTransformConflict)
}

func TestAggregateDeduplicatesByIdentity(t *testing.T) {
	qs := []quantities.Quantity{
		&testQuantity{name: "a", exts: []backprop.Extension{backprop.DiagHessian{}, backprop.BatchGrad{}}},
		&testQuantity{name: "b", exts: []backprop.Extension{backprop.DiagHessian{}}},
	}

	exts, err := aggregateExtensions(qs, 0)
	require.NoError(t, err)
	assert.Len(t, exts, 2)
}

func TestAggregateConfigurationConflict(t *testing.T) {
	qs := []quantities.Quantity{
		&testQuantity{name: "a", exts: []backprop.Extension{backprop.DiagGGNMC{MCSamples: 1}}},
		&testQuantity{name: "b", exts: []backprop.Extension{backprop.DiagGGNMC{MCSamples: 4}}},
	}

	_, err := aggregateExtensions(qs, 0)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestNewValidation(t *testing.T) {
	problem := quadraticProblem()
	sched := quantities.Linear(1)

	_, err := New(Config{Quantities: quantities.Economy(sched)})
	assert.Error(t, err, "nil model")

	_, err = New(Config{Model: problem.Model()})
	assert.Error(t, err, "no quantities")

	_, err = New(Config{
		Model: problem.Model(),
		Quantities: []quantities.Quantity{
			quantities.NewTime(sched),
			quantities.NewTime(sched),
		},
	})
	assert.Error(t, err, "two Time quantities")
}

func TestTrackLifecycle(t *testing.T) {
	problem := quadraticProblem()
	pit, err := New(Config{
		Model:      problem.Model(),
		Quantities: quantities.Full(quantities.Linear(1)),
	})
	require.NoError(t, err)

	for step := 0; step < 3; step++ {
		require.NoError(t, pit.Track(step, problem.Loss()))

		for _, p := range problem.Parameters() {
			assert.Empty(t, p.FieldNames(), "step %d: savefields must be reclaimed", step)
			assert.NotNil(t, p.Grad(), "step %d: gradients must survive Track", step)
		}
	}

	merged, err := pit.Output()
	require.NoError(t, err)
	for step := 0; step < 3; step++ {
		require.Contains(t, merged, step)
		assert.Contains(t, merged[step], "loss")
		assert.Contains(t, merged[step], "trace")
		assert.Contains(t, merged[step], "max_ev")
	}
}

func TestOutputKeysMatchSchedule(t *testing.T) {
	problem := quadraticProblem()
	sched := quantities.Linear(2)
	qs := quantities.Full(sched)

	pit, err := New(Config{Model: problem.Model(), Quantities: qs})
	require.NoError(t, err)

	const steps = 5
	for step := 0; step < steps; step++ {
		require.NoError(t, pit.Track(step, problem.Loss()))
	}

	for _, q := range qs {
		for step := range q.Output() {
			assert.True(t, sched(step),
				"quantity %q emitted at unscheduled step %d", q.Name(), step)
		}
		if q.Name() == "alpha" {
			// Windows opened at 0 and 2 closed; the one at 4 did not.
			assert.Len(t, q.Output(), 2)
			continue
		}
		assert.Len(t, q.Output(), 3,
			"quantity %q should emit at steps 0, 2, 4", q.Name())
	}
}

func TestTrackStripsIOBuffers(t *testing.T) {
	problem := problems.NewRegressionMLP(problems.RegressionMLPConfig{
		InFeatures:  3,
		Hidden:      4,
		OutFeatures: 1,
		BatchSize:   8,
		Noise:       0.1,
		Seed:        1,
	})
	pit, err := New(Config{
		Model:      problem.Model(),
		Quantities: quantities.Economy(quantities.Linear(1)),
	})
	require.NoError(t, err)

	require.NoError(t, pit.Track(0, problem.Loss()))

	stack := []nn.Module{problem.Model()}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if io, ok := m.(nn.IOBuffers); ok {
			assert.False(t, io.HasIO(), "module %T kept io buffers", m)
		}
		stack = append(stack, m.Children()...)
	}
}

func TestTrackUnsupportedProblem(t *testing.T) {
	// The MLP provides no curvature; a curvature quantity must fail fast.
	problem := problems.NewRegressionMLP(problems.RegressionMLPConfig{
		InFeatures:  3,
		Hidden:      4,
		OutFeatures: 1,
		BatchSize:   8,
		Seed:        1,
	})
	pit, err := New(Config{
		Model:      problem.Model(),
		Quantities: []quantities.Quantity{quantities.NewTrace(quantities.Linear(1))},
	})
	require.NoError(t, err)

	err = pit.Track(0, problem.Loss())
	assert.ErrorIs(t, err, ErrUnsupportedProblem)

	for _, p := range problem.Parameters() {
		assert.Empty(t, p.FieldNames(), "failed step must still reclaim buffers")
	}
}

func TestTrackEmptyBatch(t *testing.T) {
	problem := quadraticProblem()
	pit, err := New(Config{
		Model:      problem.Model(),
		Quantities: quantities.Economy(quantities.Linear(1)),
	})
	require.NoError(t, err)

	err = pit.Track(0, backprop.Loss{})
	assert.ErrorIs(t, err, ErrUnsupportedProblem)
}

func TestOutputMerge(t *testing.T) {
	problem := quadraticProblem()
	agree := quantities.Output{0: {"shared": 1.0}}

	pit, err := New(Config{
		Model: problem.Model(),
		Quantities: []quantities.Quantity{
			&testQuantity{name: "a", output: agree},
			&testQuantity{name: "b", output: quantities.Output{0: {"shared": 1.0, "own": 2.0}}},
		},
	})
	require.NoError(t, err)

	merged, err := pit.Output()
	require.NoError(t, err)
	assert.Equal(t, 1.0, merged[0]["shared"])
	assert.Equal(t, 2.0, merged[0]["own"])
}

func TestOutputMergeConflict(t *testing.T) {
	problem := quadraticProblem()
	pit, err := New(Config{
		Model: problem.Model(),
		Quantities: []quantities.Quantity{
			&testQuantity{name: "a", output: quantities.Output{0: {"shared": 1.0}}},
			&testQuantity{name: "b", output: quantities.Output{0: {"shared": 2.0}}},
		},
	})
	require.NoError(t, err)

	_, err = pit.Output()
	assert.ErrorIs(t, err, ErrLogKeyConflict)
}

func TestWriteRoundTrip(t *testing.T) {
	problem := quadraticProblem()
	pit, err := New(Config{
		Model:      problem.Model(),
		Quantities: quantities.Economy(quantities.Linear(1)),
	})
	require.NoError(t, err)

	require.NoError(t, pit.Track(0, problem.Loss()))
	require.NoError(t, pit.Track(1, problem.Loss()))
	pit.Log(1, EpochInfo{Epoch: 1, TrainLoss: 0.5, LearningRate: 0.01})

	path := filepath.Join(t.TempDir(), "run")
	require.NoError(t, pit.Write(path, map[string]any{"run_id": "test"}))

	data, err := os.ReadFile(path + ".json")
	require.NoError(t, err)

	var decoded struct {
		Metadata map[string]any            `json:"metadata"`
		Steps    map[string]map[string]any `json:"steps"`
		Epochs   map[string]EpochInfo      `json:"epochs"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "test", decoded.Metadata["run_id"])
	require.Contains(t, decoded.Steps, "0")
	assert.Contains(t, decoded.Steps["0"], "loss")
	require.Contains(t, decoded.Epochs, "1")
	assert.Equal(t, 1, decoded.Epochs["1"].Epoch)
	assert.Equal(t, 0.5, decoded.Epochs["1"].TrainLoss)
}
