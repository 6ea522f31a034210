package backprop

import (
	"errors"
	"testing"

	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/parallel"
	"github.com/born-ml/cockpit/internal/tensor"
)

func testLoss(t *testing.T) (Loss, []*nn.Parameter) {
	t.Helper()
	p := nn.NewParameter("theta", tensor.Zeros(tensor.Shape{2}))

	g1, _ := tensor.FromSlice([]float32{1, 0}, tensor.Shape{2})
	g2, _ := tensor.FromSlice([]float32{0, 1}, tensor.Shape{2})
	diag, _ := tensor.FromSlice([]float32{2, 4}, tensor.Shape{2})

	loss := Loss{
		Value:      1,
		Individual: []float64{0.5, 1.5},
		Gradients: func() []*tensor.Tensor {
			return []*tensor.Tensor{tensor.Mean([]*tensor.Tensor{g1, g2})}
		},
		BatchGradients: func() [][]*tensor.Tensor {
			return [][]*tensor.Tensor{{g1, g2}}
		},
		HessianDiag: func() []*tensor.Tensor {
			return []*tensor.Tensor{diag.Clone()}
		},
	}
	return loss, []*nn.Parameter{p}
}

func TestBackwardSetsGradients(t *testing.T) {
	loss, params := testLoss(t)
	e := NewEngine(EngineConfig{})

	if err := e.Backward(loss, params, nil, false); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	g := params[0].Grad()
	if g == nil {
		t.Fatal("gradient not set")
	}
	if g.At(0) != 0.5 || g.At(1) != 0.5 {
		t.Errorf("gradient = [%v %v], want [0.5 0.5]", g.At(0), g.At(1))
	}
	if n := len(params[0].FieldNames()); n != 0 {
		t.Errorf("no extensions requested but %d savefields materialized", n)
	}
}

func TestBackwardMaterializesBatchGrad(t *testing.T) {
	loss, params := testLoss(t)
	e := NewEngine(EngineConfig{})

	if err := e.Backward(loss, params, []Extension{BatchGrad{}}, false); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	v, ok := params[0].Field(FieldGradBatch)
	if !ok {
		t.Fatal("grad_batch not materialized")
	}
	bg := v.([]*tensor.Tensor)
	if len(bg) != 2 {
		t.Fatalf("got %d per-sample gradients, want 2", len(bg))
	}
	if bg[0].At(0) != 1 || bg[1].At(1) != 1 {
		t.Error("per-sample gradients have wrong values")
	}
}

func TestBackwardMaterializesDiagHessian(t *testing.T) {
	loss, params := testLoss(t)
	e := NewEngine(EngineConfig{})

	if err := e.Backward(loss, params, []Extension{DiagHessian{}}, false); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	v, ok := params[0].Field(FieldDiagHessian)
	if !ok {
		t.Fatal("diag_h not materialized")
	}
	if diag := v.(*tensor.Tensor); diag.At(1) != 4 {
		t.Errorf("diag_h[1] = %v, want 4", diag.At(1))
	}
}

func TestBackwardAppliesTransforms(t *testing.T) {
	loss, params := testLoss(t)
	e := NewEngine(EngineConfig{Parallel: parallel.Sequential()})

	sumSquares := func(_ *nn.Parameter, batch []*tensor.Tensor) *tensor.Tensor {
		out := tensor.New(tensor.Shape{len(batch)})
		for n, g := range batch {
			out.Data()[n] = g.SumSquares()
		}
		return out
	}
	ext := NewBatchGradTransforms(map[string]Transform{"l2": sumSquares})

	if err := e.Backward(loss, params, []Extension{ext}, false); err != nil {
		t.Fatalf("Backward failed: %v", err)
	}
	v, ok := params[0].Field(FieldGradBatchTransforms)
	if !ok {
		t.Fatal("grad_batch_transforms not materialized")
	}
	m := v.(map[string]*tensor.Tensor)
	if m["l2"].At(0) != 1 || m["l2"].At(1) != 1 {
		t.Errorf("transform values = [%v %v], want [1 1]", m["l2"].At(0), m["l2"].At(1))
	}
}

func TestBackwardMissingCapability(t *testing.T) {
	loss, params := testLoss(t)
	loss.HessianDiag = nil
	e := NewEngine(EngineConfig{})

	err := e.Backward(loss, params, []Extension{DiagHessian{}}, false)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}

func TestBackwardMissingGradients(t *testing.T) {
	loss, params := testLoss(t)
	loss.Gradients = nil
	e := NewEngine(EngineConfig{})

	if err := e.Backward(loss, params, nil, false); !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}

func TestLossVariance(t *testing.T) {
	l := Loss{Individual: []float64{1, 3}}
	if got := l.LossVariance(); got != 2 {
		t.Errorf("LossVariance = %v, want 2", got)
	}
	single := Loss{Individual: []float64{1}}
	if got := single.LossVariance(); got != 0 {
		t.Errorf("LossVariance of one sample = %v, want 0", got)
	}
}

func TestDiagGGNMCIdentity(t *testing.T) {
	a := DiagGGNMC{MCSamples: 1}
	b := DiagGGNMC{MCSamples: 4}
	if a.Identity() == b.Identity() {
		t.Error("different MC sample counts must have different identities")
	}
	if a.Kind() != b.Kind() {
		t.Error("same extension family must share a kind")
	}
}
