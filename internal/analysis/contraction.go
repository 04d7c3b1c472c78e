// Package analysis provides empirical checks of the certified behavior.
package analysis

import (
	"context"
	"math"

	"ccmkit/internal/sim"
)

// ContractionRate estimates the observed contraction rate by running twin
// trajectories from nearby initial conditions and fitting the exponent of
// their separation:
//
//	λ ≈ (1/T) · ln(|δx(T)| / |δx(0)|)
//
// A negative value means nearby trajectories converged, which is what a valid
// contraction certificate predicts for the closed loop. The two runs are
// independent and execute in parallel.
func ContractionRate(ctx context.Context, build func() *sim.Simulator, x0 sim.State, cfg sim.Config, perturbation float64) (float64, error) {
	if perturbation <= 0 {
		perturbation = 1e-6
	}
	x0p := x0.Clone()
	x0p[0] += perturbation

	ens := sim.NewEnsemble(build)
	results, err := ens.Run(ctx, []sim.State{x0, x0p}, cfg)
	if err != nil {
		return 0, err
	}

	nominal, perturbed := results[0], results[1]
	sep0 := perturbation
	sepT := perturbed.Final().State.Sub(nominal.Final().State).Norm()
	if sepT == 0 {
		// converged below floating resolution within the horizon
		return math.Inf(-1), nil
	}
	horizon := nominal.Final().T
	if horizon == 0 {
		return 0, nil
	}
	return math.Log(sepT/sep0) / horizon, nil
}
