package quantities

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Quadratic-fit machinery behind the Alpha quantity.
//
// Observing the loss and its directional derivative at the start (x=0) and
// end (x=t) of an optimizer update, we fit the local model
//
//	f(x) = b + c·x + e·x²
//
// by weighted least squares, weighting each observation with the inverse
// of its variance. Noise-free observations get a tiny variance (~1e-10)
// and act as near-certain.

// degenerateStep is the threshold below which the two observation points
// are treated as coincident.
const degenerateStep = 1e-8

// FitQuadratic fits (b, c, e) to loss observations fs = {f(0), f(t)} and
// derivative observations dfs = {f'(0), f'(t)} with variances fsVar and
// dfsVar.
//
// When t is numerically zero the two observation points coincide and the
// normal equations are singular; the fit then degenerates to the first
// observation's value and slope with zero curvature.
func FitQuadratic(t float64, fs, dfs, fsVar, dfsVar [2]float64) [3]float64 {
	if math.Abs(t) < degenerateStep {
		return [3]float64{fs[0], dfs[0], 0}
	}

	// Rows express each observation as a linear function of (b, c, e):
	// f(x) -> [1, x, x²], f'(x) -> [0, 1, 2x], observed at x = 0 and x = t.
	a := mat.NewDense(4, 3, []float64{
		1, 0, 0,
		1, t, t * t,
		0, 1, 0,
		0, 1, 2 * t,
	})
	y := mat.NewVecDense(4, []float64{fs[0], fs[1], dfs[0], dfs[1]})

	// Scale each equation by 1/sqrt(var): solving the scaled system in the
	// least-squares sense is exactly the inverse-variance weighted fit.
	variances := []float64{fsVar[0], fsVar[1], dfsVar[0], dfsVar[1]}
	for i, v := range variances {
		w := 1 / math.Sqrt(v)
		for j := 0; j < 3; j++ {
			a.Set(i, j, a.At(i, j)*w)
		}
		y.SetVec(i, y.AtVec(i)*w)
	}

	var x mat.VecDense
	if err := x.SolveVec(a, y); err != nil {
		// Rank-deficient despite t != 0; fall back to the one-point fit.
		return [3]float64{fs[0], dfs[0], 0}
	}
	return [3]float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)}
}

// AlphaFromFit derives the local effective step size from a fit (b, c, e)
// over a step of length t.
//
// The fitted parabola has its minimum at x* = -c/(2e). Alpha measures the
// step relative to that minimum: 0 means the update walked exactly to the
// minimum, 1 means it overshot to the point of equal loss on the other
// side, -1 means the loss is still decreasing linearly at the end point.
//
// Degenerate cases are deterministic, never errors: a linear or concave
// fit (e <= 0), or a minimum at or behind the start point, yields -1.
func AlphaFromFit(mu [3]float64, t float64) float64 {
	c, e := mu[1], mu[2]
	if e <= 0 {
		return -1
	}
	xmin := -c / (2 * e)
	if xmin <= 0 {
		return -1
	}
	return t/xmin - 1
}
