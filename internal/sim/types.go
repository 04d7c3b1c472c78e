package sim

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

type Control []float64

func (c Control) Clone() Control {
	out := make(Control, len(c))
	copy(out, c)
	return out
}

// Dynamics is a controlled vector field dx/dt = f(x, u, t).
type Dynamics interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

type Controller interface {
	Compute(x State, t float64) Control
}

type Config struct {
	Dt       float64
	Duration float64
}

// Point is one trajectory sample: the state after the step and the control
// input evaluated at that state.
type Point struct {
	T     float64
	State State
	U     Control
}

// Result is a complete, immutable trajectory. Runs are all-or-nothing: a
// Result never holds a partial prefix of a failed run.
type Result struct {
	Points []Point
}

func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.T
	}
	return out
}

// StateSeries extracts component i of the state across the trajectory.
func (r *Result) StateSeries(i int) []float64 {
	out := make([]float64, len(r.Points))
	for k, p := range r.Points {
		out[k] = p.State[i]
	}
	return out
}

// InputSeries extracts component j of the control input across the trajectory.
func (r *Result) InputSeries(j int) []float64 {
	out := make([]float64, len(r.Points))
	for k, p := range r.Points {
		if j < len(p.U) {
			out[k] = p.U[j]
		}
	}
	return out
}

func (r *Result) Final() Point {
	return r.Points[len(r.Points)-1]
}
