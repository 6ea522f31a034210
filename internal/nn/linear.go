package nn

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"

	"github.com/born-ml/cockpit/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//
// Weights are initialized with Xavier/Glorot uniform, biases with zeros.
type Linear struct {
	ioBuffers

	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features]
}

// NewLinear creates a new Linear layer.
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	weight := NewParameter("weight", xavier(inFeatures, outFeatures, rng))
	bias := NewParameter("bias", tensor.Zeros(tensor.Shape{outFeatures}))

	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
	}
}

// Forward computes y = x @ W.T + b and buffers the input/output pair.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, shape[1]))
	}

	batch := shape[0]
	output := tensor.New(tensor.Shape{batch, l.outFeatures})
	w := l.weight.Tensor().Data()
	b := l.bias.Tensor().Data()
	in := input.Data()
	out := output.Data()

	for n := 0; n < batch; n++ {
		x := in[n*l.inFeatures : (n+1)*l.inFeatures]
		y := out[n*l.outFeatures : (n+1)*l.outFeatures]
		for o := 0; o < l.outFeatures; o++ {
			row := w[o*l.inFeatures : (o+1)*l.inFeatures]
			acc := b[o]
			for i, v := range x {
				acc += row[i] * v
			}
			y[o] = acc
		}
	}

	l.storeIO(input, output)
	return output
}

// Parameters returns [weight, bias].
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}

// Children returns nil; Linear is a leaf module.
func (l *Linear) Children() []Module {
	return nil
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// xavier initializes a [out, in] weight tensor with Xavier/Glorot uniform
// values in [-limit, limit], limit = sqrt(6 / (fanIn + fanOut)).
func xavier(fanIn, fanOut int, rng *rand.Rand) *tensor.Tensor {
	limit := math32.Sqrt(6 / float32(fanIn+fanOut))
	t := tensor.New(tensor.Shape{fanOut, fanIn})
	data := t.Data()
	for i := range data {
		data[i] = (2*rng.Float32() - 1) * limit
	}
	return t
}
