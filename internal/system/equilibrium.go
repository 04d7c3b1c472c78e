package system

import "ccmkit/internal/sim"

// EquilibriumPolicy fixes the reference point the control law regulates to.
// It is explicit configuration data; nothing infers it from state names or
// dimensions.
type EquilibriumPolicy struct {
	Reference []float64
}

// At returns the reference as an n-vector, zero-padded or truncated. The
// zero-value policy is the origin.
func (p EquilibriumPolicy) At(n int) sim.State {
	ref := make(sim.State, n)
	copy(ref, p.Reference)
	return ref
}

// EquilibriumPolicy returns the policy declared in the config; origin when
// the equilibrium field is omitted.
func (c *Config) EquilibriumPolicy() EquilibriumPolicy {
	return EquilibriumPolicy{Reference: c.Equilibrium}
}

// EquilibriumState is the n-vector form of the configured policy.
func (c *Config) EquilibriumState() sim.State {
	return c.EquilibriumPolicy().At(c.N())
}
