package quantities

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/cockpit/internal/backprop"
	"github.com/born-ml/cockpit/internal/nn"
)

// Histogram defaults. Ranges are fixed rather than adaptive so that
// histograms from different steps share bin edges and can be compared
// side by side.
const (
	histBins  = 40
	histRange = 2.0
)

// GradHist1d tracks a histogram of the individual gradient elements,
// pooled over all trainable parameters. Elements outside the range are
// clipped into the edge bins.
type GradHist1d struct {
	baseQuantity
	bins  int
	limit float64
}

// NewGradHist1d creates a GradHist1d quantity.
func NewGradHist1d(schedule Schedule) *GradHist1d {
	return &GradHist1d{
		baseQuantity: newBase("grad_hist_1d", schedule),
		bins:         histBins,
		limit:        histRange,
	}
}

// Extensions returns nil; the histogram reads the batch gradient.
func (q *GradHist1d) Extensions(step int) []backprop.Extension {
	return nil
}

// Compute records bin edges and counts for the gradient element histogram.
func (q *GradHist1d) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	var values []float64
	for _, p := range trainable(params) {
		g, err := fetchGrad(q, p)
		if err != nil {
			return err
		}
		values = append(values, g.AsFloat64()...)
	}
	edges := make([]float64, q.bins+1)
	floats.Span(edges, -q.limit, q.limit)

	q.store(step, "grad_hist_edges", edges)
	q.store(step, "grad_hist_counts", histogram(values, edges))
	return nil
}

// histogram counts values per bin, clipping out-of-range values into the
// edge bins. gonum's stat.Histogram wants sorted data strictly below the
// last divider, so the values are clipped and sorted on a copy first.
func histogram(values, edges []float64) []float64 {
	if len(values) == 0 {
		return make([]float64, len(edges)-1)
	}
	lo := edges[0]
	hi := math.Nextafter(edges[len(edges)-1], lo)
	clipped := make([]float64, len(values))
	for i, v := range values {
		switch {
		case v < lo:
			v = lo
		case v > hi:
			v = hi
		}
		clipped[i] = v
	}
	sort.Float64s(clipped)
	counts := make([]float64, len(edges)-1)
	return stat.Histogram(counts, edges, clipped, nil)
}

// GradHist2d tracks a two-dimensional histogram over (parameter value,
// gradient element) pairs, pooled over all trainable parameters. The
// result is stored row-major with parameter-value bins as rows.
type GradHist2d struct {
	baseQuantity
	bins       int
	paramLimit float64
	gradLimit  float64
}

// NewGradHist2d creates a GradHist2d quantity.
func NewGradHist2d(schedule Schedule) *GradHist2d {
	return &GradHist2d{
		baseQuantity: newBase("grad_hist_2d", schedule),
		bins:         histBins,
		paramLimit:   histRange,
		gradLimit:    histRange,
	}
}

// Extensions returns nil; the histogram reads parameters and gradients.
func (q *GradHist2d) Extensions(step int) []backprop.Extension {
	return nil
}

// Compute records bin edges and the flattened 2D count matrix.
func (q *GradHist2d) Compute(step int, params []*nn.Parameter, loss backprop.Loss) error {
	if !q.ShouldCompute(step) {
		return nil
	}
	paramEdges := make([]float64, q.bins+1)
	gradEdges := make([]float64, q.bins+1)
	floats.Span(paramEdges, -q.paramLimit, q.paramLimit)
	floats.Span(gradEdges, -q.gradLimit, q.gradLimit)

	counts := make([]float64, q.bins*q.bins)
	for _, p := range trainable(params) {
		g, err := fetchGrad(q, p)
		if err != nil {
			return err
		}
		vals := p.Tensor().AsFloat64()
		grads := g.AsFloat64()
		for j := range vals {
			row := binIndex(vals[j], paramEdges)
			col := binIndex(grads[j], gradEdges)
			counts[row*q.bins+col]++
		}
	}
	q.store(step, "grad_hist2d_param_edges", paramEdges)
	q.store(step, "grad_hist2d_grad_edges", gradEdges)
	q.store(step, "grad_hist2d_counts", counts)
	return nil
}

// binIndex locates v's bin among the edges, clipping out-of-range values
// into the first or last bin.
func binIndex(v float64, edges []float64) int {
	n := len(edges) - 1
	if v <= edges[0] {
		return 0
	}
	if v >= edges[n] {
		return n - 1
	}
	// Edges are uniformly spaced; direct index beats a search.
	idx := int((v - edges[0]) / (edges[n] - edges[0]) * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}
