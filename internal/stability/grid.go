package stability

import "math"

// Samples builds the 1-D sample set for one state dimension: the interval
// [min, max] split into ceil((max-min)/gridSize) even steps, both endpoints
// included. A degenerate dimension (min == max) collapses to a single point.
func Samples(min, max, gridSize float64) []float64 {
	if max == min {
		return []float64{min}
	}
	intervals := int(math.Ceil((max - min) / gridSize))
	if intervals < 1 {
		intervals = 1
	}
	step := (max - min) / float64(intervals)
	out := make([]float64, intervals+1)
	for i := range out {
		out[i] = min + float64(i)*step
	}
	out[intervals] = max
	return out
}

// grid is the Cartesian product of per-dimension sample sets, addressed by a
// flat index. Decoding is an iterative mixed-radix conversion, so enumerating
// points costs no call stack regardless of dimension count and parallel
// workers can split the index space freely.
type grid struct {
	axes  [][]float64
	total int
}

func newGrid(axes [][]float64) *grid {
	g := &grid{axes: axes, total: 1}
	if len(axes) == 0 {
		g.total = 0
		return g
	}
	for _, ax := range axes {
		g.total *= len(ax)
	}
	return g
}

// decode writes grid point k into coords (len == len(axes)). The last
// dimension varies fastest.
func (g *grid) decode(k int, coords []float64) {
	for d := len(g.axes) - 1; d >= 0; d-- {
		n := len(g.axes[d])
		coords[d] = g.axes[d][k%n]
		k /= n
	}
}
