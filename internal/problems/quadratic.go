package problems

import (
	"math/rand"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
	"github.com/born-ml/cockpit/internal/tensor"
)

// NoisyQuadratic is a stochastic quadratic with diagonal curvature:
//
//	l_n(θ) = ½ (θ − x_n)ᵀ H (θ − x_n),  x_n ~ N(0, σ²·I)
//
// Every derived quantity has a closed form, which makes this the problem
// of choice for exactness tests: the Hessian diagonal is the constant
// curvature, the GGN equals the Hessian, and Hessian-vector products are
// elementwise.
type NoisyQuadratic struct {
	theta     *nn.Parameter
	curvature *tensor.Tensor
	noise     float32
	batchSize int
	rng       *rand.Rand
	model     *quadraticModel
}

// NoisyQuadraticConfig configures a NoisyQuadratic problem.
type NoisyQuadraticConfig struct {
	// Curvature holds the diagonal Hessian entries, one per dimension.
	// All entries should be positive for a well-posed problem.
	Curvature []float32
	// Noise is the standard deviation of the per-sample optima.
	Noise float32
	// BatchSize is the number of samples per step.
	BatchSize int
	// Seed seeds the sample stream.
	Seed int64
}

// NewNoisyQuadratic creates a NoisyQuadratic problem. The parameter
// starts at all-ones, away from the expected optimum at the origin.
func NewNoisyQuadratic(cfg NoisyQuadraticConfig) *NoisyQuadratic {
	dim := len(cfg.Curvature)
	curvature, _ := tensor.FromSlice(cfg.Curvature, tensor.Shape{dim})
	theta := nn.NewParameter("theta", tensor.Full(tensor.Shape{dim}, 1))

	p := &NoisyQuadratic{
		theta:     theta,
		curvature: curvature,
		noise:     cfg.Noise,
		batchSize: cfg.BatchSize,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}
	p.model = &quadraticModel{theta: theta}
	return p
}

// Name returns "noisy_quadratic".
func (p *NoisyQuadratic) Name() string { return "noisy_quadratic" }

// Model returns the single-parameter module.
func (p *NoisyQuadratic) Model() nn.Module { return p.model }

// Parameters returns the quadratic's parameter.
func (p *NoisyQuadratic) Parameters() []*nn.Parameter {
	return []*nn.Parameter{p.theta}
}

// Loss draws a batch of noisy optima and evaluates the quadratic.
func (p *NoisyQuadratic) Loss() backprop.Loss {
	dim := p.curvature.NumElements()
	h := p.curvature.Data()
	theta := p.theta.Tensor().Data()

	// Residuals r_n = θ − x_n per sample.
	residuals := make([]*tensor.Tensor, p.batchSize)
	individual := make([]float64, p.batchSize)
	for n := range residuals {
		r := tensor.New(tensor.Shape{dim})
		data := r.Data()
		var l float64
		for j := 0; j < dim; j++ {
			data[j] = theta[j] - p.noise*float32(p.rng.NormFloat64())
			l += 0.5 * float64(h[j]) * float64(data[j]) * float64(data[j])
		}
		residuals[n] = r
		individual[n] = l
	}

	var value float64
	for _, l := range individual {
		value += l
	}
	value /= float64(p.batchSize)

	perSample := func() []*tensor.Tensor {
		grads := make([]*tensor.Tensor, p.batchSize)
		for n, r := range residuals {
			grads[n] = r.Mul(p.curvature)
		}
		return grads
	}

	return backprop.Loss{
		Value:      value,
		Individual: individual,
		Gradients: func() []*tensor.Tensor {
			return []*tensor.Tensor{tensor.Mean(residuals).Mul(p.curvature)}
		},
		BatchGradients: func() [][]*tensor.Tensor {
			return [][]*tensor.Tensor{perSample()}
		},
		HessianDiag: func() []*tensor.Tensor {
			return []*tensor.Tensor{p.curvature.Clone()}
		},
		GGNDiag: func(int) []*tensor.Tensor {
			// The quadratic's GGN coincides with its Hessian, exactly and
			// for any number of MC samples.
			return []*tensor.Tensor{p.curvature.Clone()}
		},
		HVP: func(vs []*tensor.Tensor) []*tensor.Tensor {
			return []*tensor.Tensor{vs[0].Mul(p.curvature)}
		},
	}
}

// quadraticModel wraps the quadratic's parameter as a leaf module so the
// cockpit can walk a tree. It buffers no io.
type quadraticModel struct {
	theta *nn.Parameter
}

func (m *quadraticModel) Forward(input *tensor.Tensor) *tensor.Tensor { return input }

func (m *quadraticModel) Parameters() []*nn.Parameter {
	return []*nn.Parameter{m.theta}
}

func (m *quadraticModel) Children() []nn.Module { return nil }
