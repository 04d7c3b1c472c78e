package sim

import (
	"errors"
	"fmt"
)

// Domain errors for simulation runs.
var (
	// ErrDivergence indicates the state left the finite domain mid-run.
	ErrDivergence = errors.New("sim: state diverged (NaN or Inf)")

	// ErrPrecondition indicates a run was rejected before any stepping.
	ErrPrecondition = errors.New("sim: invalid run configuration")
)

// PreconditionError reports a run rejected up front: bad time settings, or a
// closed-loop request without a usable certificate. No integration step has
// been performed when it is returned.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "sim: precondition failed: " + e.Reason
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// DivergenceError reports a non-finite state during integration. The partial
// trajectory is discarded; callers never observe a prefix.
type DivergenceError struct {
	Step int
	Time float64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("sim: diverged at step %d (t=%.4f)", e.Step, e.Time)
}

func (e *DivergenceError) Unwrap() error { return ErrDivergence }
