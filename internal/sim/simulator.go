package sim

import (
	"context"
	"fmt"
	"math"
)

// Feedback closes the loop around a dynamics: the control input is recomputed
// from the state at every derivative evaluation, so each of the four RK4
// stage states sees its own input.
type Feedback struct {
	Dyn  Dynamics
	Ctrl Controller
}

func (f *Feedback) Derive(x State, _ Control, t float64) State {
	u := f.Ctrl.Compute(x, t)
	return f.Dyn.Derive(x, u, t)
}

func (f *Feedback) StateDim() int   { return f.Dyn.StateDim() }
func (f *Feedback) ControlDim() int { return f.Dyn.ControlDim() }

// Simulator advances a controlled system with a fixed-step integrator. The
// loop is strictly sequential: every step depends on the previous state.
type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	controller Controller
}

func New(dyn Dynamics, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{dyn: dyn, integrator: integrator, controller: controller}
}

// Run integrates from x0 over the configured horizon and returns the full
// trajectory. On divergence the work done so far is discarded and a
// DivergenceError is returned; on bad time settings a PreconditionError is
// returned before any stepping.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Floor(cfg.Duration / cfg.Dt))
	loop := &Feedback{Dyn: s.dyn, Ctrl: s.controller}

	x := x0.Clone()
	points := make([]Point, 0, steps+1)
	points = append(points, Point{T: 0, State: x.Clone(), U: s.controller.Compute(x, 0)})

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		t := float64(i) * cfg.Dt
		x = s.integrator.Step(loop, x, nil, t, cfg.Dt)
		if !x.IsValid() {
			return nil, &DivergenceError{Step: i + 1, Time: t + cfg.Dt}
		}

		tn := float64(i+1) * cfg.Dt
		points = append(points, Point{T: tn, State: x.Clone(), U: s.controller.Compute(x, tn)})
	}

	return &Result{Points: points}, nil
}

func validate(cfg Config) error {
	if cfg.Duration <= 0 {
		return &PreconditionError{Reason: fmt.Sprintf("duration must be positive, got %g", cfg.Duration)}
	}
	if cfg.Dt <= 0 {
		return &PreconditionError{Reason: fmt.Sprintf("sample time must be positive, got %g", cfg.Dt)}
	}
	if cfg.Dt >= cfg.Duration {
		return &PreconditionError{Reason: fmt.Sprintf("sample time %g must be smaller than duration %g", cfg.Dt, cfg.Duration)}
	}
	return nil
}
