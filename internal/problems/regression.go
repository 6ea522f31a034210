package problems

import (
	"math/rand"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/tensor"
)

// RegressionMLP is a two-layer MLP fitting a random linear map under MSE,
// on synthetic Gaussian inputs:
//
//	y = A·x + b + noise,  model: Linear -> ReLU -> Linear
//
// First-order capabilities (batch and per-sample gradients) are provided
// by a handwritten backward pass. Second-order capabilities are not:
// HessianDiag, GGNDiag and HVP stay nil, which makes this the problem
// exercising the cockpit's fail-fast path for curvature quantities.
type RegressionMLP struct {
	model  *nn.Sequential
	layer1 *nn.Linear
	layer2 *nn.Linear
	loss   *nn.MSELoss

	inFeatures  int
	hidden      int
	outFeatures int
	batchSize   int
	noise       float32

	truthWeight *tensor.Tensor // [out, in]
	truthBias   *tensor.Tensor // [out]
	rng         *rand.Rand
}

// RegressionMLPConfig configures a RegressionMLP problem.
type RegressionMLPConfig struct {
	InFeatures  int
	Hidden      int
	OutFeatures int
	BatchSize   int
	// Noise is the standard deviation of the target noise.
	Noise float32
	Seed  int64
}

// NewRegressionMLP creates a RegressionMLP problem.
func NewRegressionMLP(cfg RegressionMLPConfig) *RegressionMLP {
	rng := rand.New(rand.NewSource(cfg.Seed))
	layer1 := nn.NewLinear(cfg.InFeatures, cfg.Hidden, rng)
	layer2 := nn.NewLinear(cfg.Hidden, cfg.OutFeatures, rng)

	return &RegressionMLP{
		model:       nn.NewSequential(layer1, nn.NewReLU(), layer2),
		layer1:      layer1,
		layer2:      layer2,
		loss:        nn.NewMSELoss(),
		inFeatures:  cfg.InFeatures,
		hidden:      cfg.Hidden,
		outFeatures: cfg.OutFeatures,
		batchSize:   cfg.BatchSize,
		noise:       cfg.Noise,
		truthWeight: tensor.Randn(tensor.Shape{cfg.OutFeatures, cfg.InFeatures}, rng),
		truthBias:   tensor.Randn(tensor.Shape{cfg.OutFeatures}, rng),
		rng:         rng,
	}
}

// Name returns "regression_mlp".
func (p *RegressionMLP) Name() string { return "regression_mlp" }

// Model returns the MLP.
func (p *RegressionMLP) Model() nn.Module { return p.model }

// Parameters returns the MLP's parameters in layer order.
func (p *RegressionMLP) Parameters() []*nn.Parameter {
	return p.model.Parameters()
}

// Loss draws a batch, runs the forward pass through the model (filling
// the layers' io buffers), and attaches the first-order capabilities.
func (p *RegressionMLP) Loss() backprop.Loss {
	inputs := tensor.Randn(tensor.Shape{p.batchSize, p.inFeatures}, p.rng)
	targets := p.targets(inputs)

	predictions := p.model.Forward(inputs)
	individual := p.loss.Individual(predictions, targets)

	var value float64
	for _, l := range individual {
		value += l
	}
	value /= float64(len(individual))

	var perSample [][]*tensor.Tensor
	fetchPerSample := func() [][]*tensor.Tensor {
		if perSample == nil {
			perSample = p.backward(inputs, targets)
		}
		return perSample
	}

	return backprop.Loss{
		Value:      value,
		Individual: individual,
		Gradients: func() []*tensor.Tensor {
			bg := fetchPerSample()
			grads := make([]*tensor.Tensor, len(bg))
			for i, samples := range bg {
				grads[i] = tensor.Mean(samples)
			}
			return grads
		},
		BatchGradients: fetchPerSample,
	}
}

// targets computes y = A·x + b + noise for a batch of inputs.
func (p *RegressionMLP) targets(inputs *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(tensor.Shape{p.batchSize, p.outFeatures})
	for n := 0; n < p.batchSize; n++ {
		x := p.row(inputs, n, p.inFeatures)
		y := tensor.MatVec(p.truthWeight, x)
		data := y.Data()
		for k := range data {
			data[k] += p.truthBias.Data()[k] + p.noise*float32(p.rng.NormFloat64())
		}
		copy(out.Data()[n*p.outFeatures:(n+1)*p.outFeatures], data)
	}
	return out
}

// backward computes per-sample gradients by hand, indexed
// [parameter][sample] with parameters in model order (W1, b1, W2, b2).
func (p *RegressionMLP) backward(inputs, targets *tensor.Tensor) [][]*tensor.Tensor {
	w1 := p.layer1.Weight().Tensor()
	b1 := p.layer1.Bias().Tensor()
	w2 := p.layer2.Weight().Tensor()
	b2 := p.layer2.Bias().Tensor()

	gradsW1 := make([]*tensor.Tensor, p.batchSize)
	gradsB1 := make([]*tensor.Tensor, p.batchSize)
	gradsW2 := make([]*tensor.Tensor, p.batchSize)
	gradsB2 := make([]*tensor.Tensor, p.batchSize)

	for n := 0; n < p.batchSize; n++ {
		x := p.row(inputs, n, p.inFeatures)
		y := p.row(targets, n, p.outFeatures)

		// Forward, keeping the pre-activation for the ReLU derivative.
		a1 := tensor.MatVec(w1, x)
		a1.AddInPlace(b1)
		h := a1.Clone()
		for i, v := range h.Data() {
			if v < 0 {
				h.Data()[i] = 0
			}
		}
		pred := tensor.MatVec(w2, h)
		pred.AddInPlace(b2)

		// dl/dpred for l = mean_k (pred_k - y_k)².
		dPred := pred.Sub(y)
		dPred.ScaleInPlace(2 / float32(p.outFeatures))

		gradsW2[n] = tensor.Outer(dPred, h)
		gradsB2[n] = dPred

		dh := tensor.MatVecT(w2, dPred)
		for i, v := range a1.Data() {
			if v < 0 {
				dh.Data()[i] = 0
			}
		}
		gradsW1[n] = tensor.Outer(dh, x)
		gradsB1[n] = dh
	}

	return [][]*tensor.Tensor{gradsW1, gradsB1, gradsW2, gradsB2}
}

// row extracts sample n of a [batch, features] tensor as a 1D tensor.
func (p *RegressionMLP) row(t *tensor.Tensor, n, features int) *tensor.Tensor {
	out, _ := tensor.FromSlice(t.Data()[n*features:(n+1)*features], tensor.Shape{features})
	return out
}
