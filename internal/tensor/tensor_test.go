package tensor

import (
	"math"
	"math/rand"
	"testing"
)

func TestFromSlice(t *testing.T) {
	x, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if x.NumElements() != 6 {
		t.Errorf("NumElements = %d, want 6", x.NumElements())
	}
	if got := x.At(1, 2); got != 6 {
		t.Errorf("At(1,2) = %v, want 6", got)
	}
}

func TestFromSliceLengthMismatch(t *testing.T) {
	if _, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2}); err == nil {
		t.Error("expected error for mismatched data length")
	}
}

func TestFromSliceCopies(t *testing.T) {
	data := []float32{1, 2, 3}
	x, _ := FromSlice(data, Shape{3})
	data[0] = 99
	if got := x.At(0); got != 1 {
		t.Errorf("tensor aliases caller data: At(0) = %v, want 1", got)
	}
}

func TestElementwiseOps(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2, 3}, Shape{3})
	b, _ := FromSlice([]float32{4, 5, 6}, Shape{3})

	sum := a.Add(b)
	for i, want := range []float32{5, 7, 9} {
		if got := sum.At(i); got != want {
			t.Errorf("Add[%d] = %v, want %v", i, got, want)
		}
	}

	diff := b.Sub(a)
	for i, want := range []float32{3, 3, 3} {
		if got := diff.At(i); got != want {
			t.Errorf("Sub[%d] = %v, want %v", i, got, want)
		}
	}

	prod := a.Mul(b)
	for i, want := range []float32{4, 10, 18} {
		if got := prod.At(i); got != want {
			t.Errorf("Mul[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestReductions(t *testing.T) {
	x, _ := FromSlice([]float32{3, -4}, Shape{2})

	if got := x.Sum(); got != -1 {
		t.Errorf("Sum = %v, want -1", got)
	}
	if got := x.SumSquares(); got != 25 {
		t.Errorf("SumSquares = %v, want 25", got)
	}
	if got := x.Norm(); got != 5 {
		t.Errorf("Norm = %v, want 5", got)
	}
	if got := x.MaxAbs(); got != 4 {
		t.Errorf("MaxAbs = %v, want 4", got)
	}
}

func TestDot(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2, 3}, Shape{3})
	b, _ := FromSlice([]float32{4, -5, 6}, Shape{3})
	if got := a.Dot(b); got != 12 {
		t.Errorf("Dot = %v, want 12", got)
	}
}

func TestMean(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2}, Shape{2})
	b, _ := FromSlice([]float32{3, 6}, Shape{2})
	m := Mean([]*Tensor{a, b})
	for i, want := range []float32{2, 4} {
		if got := m.At(i); got != want {
			t.Errorf("Mean[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestMatVec(t *testing.T) {
	m, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	v, _ := FromSlice([]float32{1, 0, -1}, Shape{3})

	y := MatVec(m, v)
	for i, want := range []float32{-2, -2} {
		if got := y.At(i); got != want {
			t.Errorf("MatVec[%d] = %v, want %v", i, got, want)
		}
	}

	u, _ := FromSlice([]float32{1, 1}, Shape{2})
	yt := MatVecT(m, u)
	for i, want := range []float32{5, 7, 9} {
		if got := yt.At(i); got != want {
			t.Errorf("MatVecT[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestOuter(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2}, Shape{2})
	b, _ := FromSlice([]float32{3, 4, 5}, Shape{3})
	o := Outer(a, b)
	if !o.Shape().Equal(Shape{2, 3}) {
		t.Fatalf("Outer shape = %v, want [2 3]", o.Shape())
	}
	if got := o.At(1, 2); got != 10 {
		t.Errorf("Outer(1,2) = %v, want 10", got)
	}
}

func TestCloneIndependent(t *testing.T) {
	x, _ := FromSlice([]float32{1, 2}, Shape{2})
	c := x.Clone()
	c.Set(99, 0)
	if got := x.At(0); got != 1 {
		t.Errorf("Clone shares storage: At(0) = %v, want 1", got)
	}
}

func TestShapeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on shape mismatch")
		}
	}()
	a, _ := FromSlice([]float32{1, 2}, Shape{2})
	b, _ := FromSlice([]float32{1, 2, 3}, Shape{3})
	a.Add(b)
}

func TestRandnDeterministic(t *testing.T) {
	a := Randn(Shape{8}, rand.New(rand.NewSource(7)))
	b := Randn(Shape{8}, rand.New(rand.NewSource(7)))
	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatalf("same seed produced different values at %d", i)
		}
	}
}

func TestAsFloat64(t *testing.T) {
	x, _ := FromSlice([]float32{0.5, -1.5}, Shape{2})
	vals := x.AsFloat64()
	if math.Abs(vals[0]-0.5) > 1e-12 || math.Abs(vals[1]+1.5) > 1e-12 {
		t.Errorf("AsFloat64 = %v, want [0.5 -1.5]", vals)
	}
}
