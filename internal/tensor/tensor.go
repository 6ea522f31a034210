// Package tensor provides the dense float32 tensors used throughout the
// cockpit: parameter values, gradients, and the buffers a backward engine
// materializes on parameters.
//
// Unlike a full ML framework there is no device or backend dispatch here.
// The cockpit consumes quantities the backward pass already computed, so a
// single CPU representation is all it needs:
//   - Tensor: shape + contiguous row-major float32 storage
//   - Elementwise arithmetic, Dot, Norm and reductions
//
// Example:
//
//	x, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3})
//	y := tensor.Full(tensor.Shape{3}, 2)
//	z := x.Mul(y)          // [2, 4, 6]
//	n := x.Norm()          // sqrt(14)
package tensor

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
)

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	shape Shape
	data  []float32
}

// New creates a zero-initialized tensor with the given shape.
func New(shape Shape) *Tensor {
	return &Tensor{
		shape: shape.Clone(),
		data:  make([]float32, shape.NumElements()),
	}
}

// FromSlice creates a tensor from a Go slice.
//
// The slice is copied; the tensor does not alias the caller's data.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	t := New(shape)
	copy(t.data, data)
	return t, nil
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return New(shape)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float32) *Tensor {
	t := New(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Randn creates a tensor filled with samples from N(0, 1) drawn from rng.
func Randn(shape Shape, rng *rand.Rand) *Tensor {
	t := New(shape)
	for i := range t.data {
		t.data[i] = float32(rng.NormFloat64())
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// Data returns the underlying storage. Mutating the slice mutates the tensor.
func (t *Tensor) Data() []float32 {
	return t.data
}

// At returns the element at the given multi-dimensional index.
func (t *Tensor) At(indices ...int) float32 {
	return t.data[t.flatIndex(indices)]
}

// Set writes the element at the given multi-dimensional index.
func (t *Tensor) Set(value float32, indices ...int) {
	t.data[t.flatIndex(indices)] = value
}

// Item returns the single element of a one-element tensor.
func (t *Tensor) Item() float32 {
	if len(t.data) != 1 {
		panic(fmt.Sprintf("Item: tensor has %d elements, want 1", len(t.data)))
	}
	return t.data[0]
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	c := New(t.shape)
	copy(c.data, t.data)
	return c
}

// String returns a compact description for debugging.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v)", t.shape)
}

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("index rank %d does not match tensor rank %d", len(indices), len(t.shape)))
	}
	strides := t.shape.ComputeStrides()
	flat := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of range for dimension %d (size %d)", idx, i, t.shape[i]))
		}
		flat += idx * strides[i]
	}
	return flat
}

// math32-backed scalar helpers shared by the ops below.

func sqrt32(x float32) float32 { return math32.Sqrt(x) }
func abs32(x float32) float32  { return math32.Abs(x) }
