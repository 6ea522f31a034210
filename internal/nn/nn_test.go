package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/cockpit/internal/tensor"
)

func TestParameterFieldLifecycle(t *testing.T) {
	p := NewParameter("w", tensor.Zeros(tensor.Shape{2}))

	if p.HasField("diag_h") {
		t.Error("fresh parameter should have no fields")
	}

	diag := tensor.Full(tensor.Shape{2}, 1)
	p.SetField("diag_h", diag)
	v, ok := p.Field("diag_h")
	if !ok || v.(*tensor.Tensor) != diag {
		t.Error("Field did not return the stored buffer")
	}

	p.DeleteField("diag_h")
	if p.HasField("diag_h") {
		t.Error("field survived DeleteField")
	}

	// Deleting a never-set field must be a no-op, not a panic or error.
	p.DeleteField("not_there")
}

func TestParameterGrad(t *testing.T) {
	p := NewParameter("w", tensor.Zeros(tensor.Shape{2}))
	if p.Grad() != nil {
		t.Error("gradient should be nil before backward")
	}
	g := tensor.Full(tensor.Shape{2}, 3)
	p.SetGrad(g)
	if p.Grad() != g {
		t.Error("SetGrad/Grad round trip failed")
	}
	p.ZeroGrad()
	if p.Grad() != nil {
		t.Error("gradient survived ZeroGrad")
	}
}

func TestLinearForward(t *testing.T) {
	l := NewLinear(2, 2, rand.New(rand.NewSource(1)))
	w, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	copy(l.Weight().Tensor().Data(), w.Data())
	copy(l.Bias().Tensor().Data(), []float32{10, 20})

	in, _ := tensor.FromSlice([]float32{1, 1}, tensor.Shape{1, 2})
	out := l.Forward(in)

	want := []float32{13, 27}
	for i, w := range want {
		if got := out.At(0, i); got != w {
			t.Errorf("Forward[%d] = %v, want %v", i, got, w)
		}
	}
	if !l.HasIO() {
		t.Error("Forward should buffer the input/output pair")
	}
	l.ClearIO()
	if l.HasIO() {
		t.Error("buffers survived ClearIO")
	}
}

func TestReLU(t *testing.T) {
	r := NewReLU()
	in, _ := tensor.FromSlice([]float32{-1, 0, 2}, tensor.Shape{3})
	out := r.Forward(in)
	want := []float32{0, 0, 2}
	for i, w := range want {
		if got := out.At(i); got != w {
			t.Errorf("ReLU[%d] = %v, want %v", i, got, w)
		}
	}
}

func TestSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	model := NewSequential(NewLinear(4, 8, rng), NewReLU(), NewLinear(8, 2, rng))

	if got := len(model.Parameters()); got != 4 {
		t.Errorf("Parameters count = %d, want 4", got)
	}
	if got := len(model.Children()); got != 3 {
		t.Errorf("Children count = %d, want 3", got)
	}

	in := tensor.Randn(tensor.Shape{3, 4}, rng)
	out := model.Forward(in)
	if !out.Shape().Equal(tensor.Shape{3, 2}) {
		t.Errorf("output shape = %v, want [3 2]", out.Shape())
	}
}

func TestMSELoss(t *testing.T) {
	loss := NewMSELoss()
	pred, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	tgt, _ := tensor.FromSlice([]float32{1, 0, 3, 0}, tensor.Shape{2, 2})

	individual := loss.Individual(pred, tgt)
	if len(individual) != 2 {
		t.Fatalf("Individual length = %d, want 2", len(individual))
	}
	// Sample 0: (0² + 2²)/2 = 2. Sample 1: (0² + 4²)/2 = 8.
	if math.Abs(individual[0]-2) > 1e-9 || math.Abs(individual[1]-8) > 1e-9 {
		t.Errorf("Individual = %v, want [2 8]", individual)
	}
	if got := loss.Forward(pred, tgt); math.Abs(got-5) > 1e-9 {
		t.Errorf("Forward = %v, want 5", got)
	}
}

func TestCrossEntropyLoss(t *testing.T) {
	loss := NewCrossEntropyLoss()

	// Uniform logits: loss is log(classes) regardless of label.
	logits, _ := tensor.FromSlice([]float32{0, 0, 0, 0}, tensor.Shape{2, 2})
	individual := loss.Individual(logits, []int{0, 1})
	for i, l := range individual {
		if math.Abs(l-math.Log(2)) > 1e-6 {
			t.Errorf("Individual[%d] = %v, want log(2)", i, l)
		}
	}

	// A confident correct prediction drives the loss toward zero.
	confident, _ := tensor.FromSlice([]float32{10, -10}, tensor.Shape{1, 2})
	if got := loss.Forward(confident, []int{0}); got > 1e-6 {
		t.Errorf("confident correct loss = %v, want ~0", got)
	}
	if got := loss.Forward(confident, []int{1}); got < 10 {
		t.Errorf("confident wrong loss = %v, want ~20", got)
	}
}
