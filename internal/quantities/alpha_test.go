package quantities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

// quadraticStep materializes one noise-free step of f(θ) = ½θ² on a 1D
// parameter: both samples agree exactly, so the fit weights collapse to
// the minimum variance.
func quadraticStep(t *testing.T, p *nn.Parameter) backprop.Loss {
	t.Helper()
	theta := p.Tensor().Data()[0]
	p.SetField(backprop.FieldGradBatch, mkBatch(t, []float32{theta}, []float32{theta}))
	l := 0.5 * float64(theta) * float64(theta)
	return mkLoss(l, l, l)
}

func TestAlphaStepToMinimum(t *testing.T) {
	p := mkParam(t, "theta", 1)
	q := NewAlpha(Linear(1))

	require.NoError(t, q.Compute(0, []*nn.Parameter{p}, quadraticStep(t, p)))
	assert.Empty(t, q.Output(), "window must not emit before it closes")

	p.Tensor().Data()[0] = 0
	require.NoError(t, q.Compute(1, []*nn.Parameter{p}, quadraticStep(t, p)))

	out := q.Output()
	require.Contains(t, out, 0, "alpha keys at the window start step")
	assert.InDelta(t, 0, out[0]["alpha"].(float64), 1e-6)
}

func TestAlphaOvershoot(t *testing.T) {
	p := mkParam(t, "theta", 1)
	q := NewAlpha(Linear(1))

	require.NoError(t, q.Compute(0, []*nn.Parameter{p}, quadraticStep(t, p)))
	p.Tensor().Data()[0] = -1
	require.NoError(t, q.Compute(1, []*nn.Parameter{p}, quadraticStep(t, p)))

	// Walked through the minimum to the point of equal loss.
	assert.InDelta(t, 1, q.Output()[0]["alpha"].(float64), 1e-6)
}

func TestAlphaNoUpdate(t *testing.T) {
	p := mkParam(t, "theta", 1)
	q := NewAlpha(Linear(1))

	require.NoError(t, q.Compute(0, []*nn.Parameter{p}, quadraticStep(t, p)))
	require.NoError(t, q.Compute(1, []*nn.Parameter{p}, quadraticStep(t, p)))

	// Zero step length degenerates to the linear fit, alpha -1.
	assert.Equal(t, -1.0, q.Output()[0]["alpha"])
}

func TestAlphaWindowKeys(t *testing.T) {
	p := mkParam(t, "theta", 1)
	q := NewAlpha(Linear(2))

	assert.True(t, q.ShouldCompute(0), "window start")
	assert.True(t, q.ShouldCompute(1), "window close")
	assert.True(t, q.ShouldCompute(2))
	assert.True(t, q.ShouldCompute(3))

	for step := 0; step < 4; step++ {
		require.NoError(t, q.Compute(step, []*nn.Parameter{p}, quadraticStep(t, p)))
		p.Tensor().Data()[0] *= 0.5
	}

	out := q.Output()
	assert.Contains(t, out, 0)
	assert.Contains(t, out, 2)
	assert.NotContains(t, out, 1)
	assert.NotContains(t, out, 3)
}

func TestAlphaRequestsBatchGradAtBothEndpoints(t *testing.T) {
	q := NewAlpha(Linear(2))
	assert.NotEmpty(t, q.Extensions(0))
	assert.NotEmpty(t, q.Extensions(1))
}
