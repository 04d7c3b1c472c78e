// Package metrics computes summary statistics over finished trajectories.
package metrics

import (
	"math"

	"ccmkit/internal/sim"
)

// ControlEffort is the integral of |u|² over the trajectory (rectangle rule).
func ControlEffort(r *sim.Result, dt float64) float64 {
	effort := 0.0
	for _, p := range r.Points {
		for _, u := range p.U {
			effort += u * u * dt
		}
	}
	return effort
}

// Convergence is the ratio of the final to the initial distance from the
// equilibrium reference. Values below 1 mean the trajectory moved toward the
// reference; 0 initial distance reports 0.
func Convergence(r *sim.Result, eq sim.State) float64 {
	if len(r.Points) == 0 {
		return 0
	}
	initial := r.Points[0].State.Sub(eq).Norm()
	final := r.Final().State.Sub(eq).Norm()
	if initial == 0 {
		return 0
	}
	return final / initial
}

// PeakState is the largest state-component magnitude seen over the run.
func PeakState(r *sim.Result) float64 {
	peak := 0.0
	for _, p := range r.Points {
		for _, v := range p.State {
			peak = math.Max(peak, math.Abs(v))
		}
	}
	return peak
}

// Summarize bundles the standard per-run metrics.
func Summarize(r *sim.Result, eq sim.State, dt float64) map[string]float64 {
	return map[string]float64{
		"control_effort": ControlEffort(r, dt),
		"convergence":    Convergence(r, eq),
		"peak_state":     PeakState(r),
	}
}
