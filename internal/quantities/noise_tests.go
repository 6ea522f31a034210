package quantities

import (
	"math"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

// Gradient noise tests after Bollapragada et al. (norm and inner-product
// tests) and the orthogonality test. Each one relates a per-sample
// statistic aggregated over the batch to the batch gradient and yields a
// scalar that batch-size adaptation rules compare against a threshold.
//
// All three consume per-sample transforms rather than raw per-sample
// gradients: the backward pass reduces the [B, D]-sized intermediate to a
// [B]-sized statistic per parameter, and the quantities only ever see the
// reduced form.

// gradNormSquared sums the squared batch-gradient norm over trainable
// parameters.
func gradNormSquared(q Quantity, params []*nn.Parameter) (float64, error) {
	var acc float64
	for _, p := range trainable(params) {
		g, err := fetchGrad(q, p)
		if err != nil {
			return 0, err
		}
		acc += float64(g.SumSquares())
	}
	return acc, nil
}

// NormTest tracks the norm test statistic
//
//	θ = sqrt(Var[‖g_n − ḡ‖²-ish]) / ‖ḡ‖
//
// concretely sqrt((Σ_n ‖g_n‖² − B‖ḡ‖²) / (B(B−1))) / ‖ḡ‖, the relative
// standard deviation of the per-sample gradient norms around the batch
// gradient.
type NormTest struct {
	baseQuantity
}

// NewNormTest creates a NormTest quantity.
func NewNormTest(schedule Schedule) *NormTest {
	return &NormTest{baseQuantity: newBase("norm_test", schedule)}
}

// Extensions requests per-sample squared gradient norms at tracked steps.
func (q *NormTest) Extensions(step int) []backprop.Extension {
	if !q.ShouldCompute(step) {
		return nil
	}
	return []backprop.Extension{
		backprop.NewBatchGradTransforms(map[string]backprop.Transform{
			keyBatchL2: BatchL2Transform,
		}),
	}
}

// Compute records the norm test statistic.
func (q *NormTest) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	l2, err := sumTransform(q, params, keyBatchL2)
	if err != nil {
		return err
	}
	gradSq, err := gradNormSquared(q, params)
	if err != nil {
		return err
	}
	b := float64(len(l2))

	var sumL2 float64
	for _, v := range l2 {
		sumL2 += v
	}
	variance := (sumL2 - b*gradSq) / (b * (b - 1))
	q.store(step, "norm_test", math.Sqrt(variance/gradSq))
	return nil
}

// InnerProductTest tracks the inner-product test statistic
//
//	θ = sqrt((1/(B(B−1))) Σ_n (g_nᵀḡ − ‖ḡ‖²)²) / ‖ḡ‖²
//
// the relative spread of the per-sample gradient projections onto the
// batch gradient.
type InnerProductTest struct {
	baseQuantity
}

// NewInnerProductTest creates an InnerProductTest quantity.
func NewInnerProductTest(schedule Schedule) *InnerProductTest {
	return &InnerProductTest{baseQuantity: newBase("inner_product_test", schedule)}
}

// Extensions requests per-sample gradient projections at tracked steps.
func (q *InnerProductTest) Extensions(step int) []backprop.Extension {
	if !q.ShouldCompute(step) {
		return nil
	}
	return []backprop.Extension{
		backprop.NewBatchGradTransforms(map[string]backprop.Transform{
			keyBatchDot: BatchDotTransform,
		}),
	}
}

// Compute records the inner-product test statistic.
func (q *InnerProductTest) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	dots, err := sumTransform(q, params, keyBatchDot)
	if err != nil {
		return err
	}
	gradSq, err := gradNormSquared(q, params)
	if err != nil {
		return err
	}
	b := float64(len(dots))

	var acc float64
	for _, d := range dots {
		diff := d - gradSq
		acc += diff * diff
	}
	variance := acc / (b * (b - 1))
	q.store(step, "inner_product_test", math.Sqrt(variance)/gradSq)
	return nil
}

// OrthogonalityTest tracks the orthogonality test statistic
//
//	ν = sqrt((1/(B(B−1))) Σ_n (‖g_n‖² − (g_nᵀḡ)²/‖ḡ‖²)) / ‖ḡ‖
//
// the relative magnitude of the per-sample gradient components orthogonal
// to the batch gradient.
type OrthogonalityTest struct {
	baseQuantity
}

// NewOrthogonalityTest creates an OrthogonalityTest quantity.
func NewOrthogonalityTest(schedule Schedule) *OrthogonalityTest {
	return &OrthogonalityTest{baseQuantity: newBase("orthogonality_test", schedule)}
}

// Extensions requests per-sample norms and projections at tracked steps.
func (q *OrthogonalityTest) Extensions(step int) []backprop.Extension {
	if !q.ShouldCompute(step) {
		return nil
	}
	return []backprop.Extension{
		backprop.NewBatchGradTransforms(map[string]backprop.Transform{
			keyBatchL2:  BatchL2Transform,
			keyBatchDot: BatchDotTransform,
		}),
	}
}

// Compute records the orthogonality test statistic.
func (q *OrthogonalityTest) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	l2, err := sumTransform(q, params, keyBatchL2)
	if err != nil {
		return err
	}
	dots, err := sumTransform(q, params, keyBatchDot)
	if err != nil {
		return err
	}
	gradSq, err := gradNormSquared(q, params)
	if err != nil {
		return err
	}
	b := float64(len(l2))

	var acc float64
	for n := range l2 {
		acc += l2[n] - dots[n]*dots[n]/gradSq
	}
	variance := acc / (b * (b - 1))
	q.store(step, "orthogonality_test", math.Sqrt(variance/gradSq))
	return nil
}
