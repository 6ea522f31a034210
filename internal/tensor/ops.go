package tensor

import "fmt"

// checkSameShape panics if the two tensors disagree on shape.
// Elementwise ops in this package require exact shape matches; the cockpit
// never needs broadcasting.
func checkSameShape(op string, a, b *Tensor) {
	if !a.shape.Equal(b.shape) {
		panic(fmt.Sprintf("%s: shape mismatch %v vs %v", op, a.shape, b.shape))
	}
}

// Add returns a + other elementwise.
func (t *Tensor) Add(other *Tensor) *Tensor {
	checkSameShape("Add", t, other)
	out := New(t.shape)
	for i := range t.data {
		out.data[i] = t.data[i] + other.data[i]
	}
	return out
}

// Sub returns a - other elementwise.
func (t *Tensor) Sub(other *Tensor) *Tensor {
	checkSameShape("Sub", t, other)
	out := New(t.shape)
	for i := range t.data {
		out.data[i] = t.data[i] - other.data[i]
	}
	return out
}

// Mul returns a * other elementwise.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	checkSameShape("Mul", t, other)
	out := New(t.shape)
	for i := range t.data {
		out.data[i] = t.data[i] * other.data[i]
	}
	return out
}

// Scale returns s * t elementwise.
func (t *Tensor) Scale(s float32) *Tensor {
	out := New(t.shape)
	for i := range t.data {
		out.data[i] = s * t.data[i]
	}
	return out
}

// AddInPlace accumulates other into t.
func (t *Tensor) AddInPlace(other *Tensor) {
	checkSameShape("AddInPlace", t, other)
	for i := range t.data {
		t.data[i] += other.data[i]
	}
}

// ScaleInPlace multiplies t by s.
func (t *Tensor) ScaleInPlace(s float32) {
	for i := range t.data {
		t.data[i] *= s
	}
}

// Dot returns the inner product of two tensors of equal shape, treating
// both as flat vectors.
func (t *Tensor) Dot(other *Tensor) float32 {
	checkSameShape("Dot", t, other)
	var acc float32
	for i := range t.data {
		acc += t.data[i] * other.data[i]
	}
	return acc
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float32 {
	var acc float32
	for _, v := range t.data {
		acc += v
	}
	return acc
}

// SumSquares returns the sum of squared elements.
func (t *Tensor) SumSquares() float32 {
	var acc float32
	for _, v := range t.data {
		acc += v * v
	}
	return acc
}

// Norm returns the Euclidean norm of the flattened tensor.
func (t *Tensor) Norm() float32 {
	return sqrt32(t.SumSquares())
}

// MaxAbs returns the largest absolute element value, 0 for empty tensors.
func (t *Tensor) MaxAbs() float32 {
	var m float32
	for _, v := range t.data {
		if a := abs32(v); a > m {
			m = a
		}
	}
	return m
}

// AsFloat64 returns a freshly allocated float64 copy of the flattened data.
// Diagnostic statistics are accumulated in float64 to avoid drift.
func (t *Tensor) AsFloat64() []float64 {
	out := make([]float64, len(t.data))
	for i, v := range t.data {
		out[i] = float64(v)
	}
	return out
}

// Mean computes the elementwise mean of a non-empty list of same-shape
// tensors.
func Mean(ts []*Tensor) *Tensor {
	if len(ts) == 0 {
		panic("Mean: empty tensor list")
	}
	out := ts[0].Clone()
	for _, t := range ts[1:] {
		out.AddInPlace(t)
	}
	out.ScaleInPlace(1 / float32(len(ts)))
	return out
}

// MatVec computes the matrix-vector product of a 2D tensor [m, n] with a
// 1D tensor [n], returning a 1D tensor [m].
func MatVec(m, v *Tensor) *Tensor {
	if len(m.shape) != 2 || len(v.shape) != 1 || m.shape[1] != v.shape[0] {
		panic(fmt.Sprintf("MatVec: incompatible shapes %v and %v", m.shape, v.shape))
	}
	rows, cols := m.shape[0], m.shape[1]
	out := New(Shape{rows})
	for i := 0; i < rows; i++ {
		var acc float32
		row := m.data[i*cols : (i+1)*cols]
		for j, w := range row {
			acc += w * v.data[j]
		}
		out.data[i] = acc
	}
	return out
}

// MatVecT computes mᵀ·v for a 2D tensor m of shape [m, n] and a 1D tensor
// v of shape [m], returning a 1D tensor [n].
func MatVecT(m, v *Tensor) *Tensor {
	if len(m.shape) != 2 || len(v.shape) != 1 || m.shape[0] != v.shape[0] {
		panic(fmt.Sprintf("MatVecT: incompatible shapes %v and %v", m.shape, v.shape))
	}
	rows, cols := m.shape[0], m.shape[1]
	out := New(Shape{cols})
	for i := 0; i < rows; i++ {
		row := m.data[i*cols : (i+1)*cols]
		for j, w := range row {
			out.data[j] += w * v.data[i]
		}
	}
	return out
}

// Outer computes the outer product a ⊗ b of two 1D tensors, returning a 2D
// tensor [len(a), len(b)].
func Outer(a, b *Tensor) *Tensor {
	if len(a.shape) != 1 || len(b.shape) != 1 {
		panic(fmt.Sprintf("Outer: want 1D tensors, got %v and %v", a.shape, b.shape))
	}
	rows, cols := a.shape[0], b.shape[0]
	out := New(Shape{rows, cols})
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.data[i*cols+j] = a.data[i] * b.data[j]
		}
	}
	return out
}
