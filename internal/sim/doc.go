// Package sim provides the core simulation primitives: state and control
// vectors, the [Dynamics], [Integrator], and [Controller] interfaces, and the
// fixed-step [Simulator] loop.
//
// Runs are all-or-nothing. A [Result] is only returned for a run that
// completed its whole horizon with finite states; divergence discards the
// partial trajectory and surfaces a [DivergenceError].
//
// Simulator instances are not safe for concurrent use. Independent runs can
// be fanned out with [Ensemble].
package sim
