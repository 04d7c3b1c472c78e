package control

import "ccmkit/internal/sim"

// None leaves the loop open: zero input of the given dimension.
type None struct {
	dim int
}

func NewNone(dim int) *None {
	return &None{dim: dim}
}

func (n *None) Compute(x sim.State, t float64) sim.Control {
	return make(sim.Control, n.dim)
}
