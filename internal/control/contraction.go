package control

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"ccmkit/internal/lmi"
	"ccmkit/internal/sim"
	"ccmkit/internal/symexpr"
	"ccmkit/internal/system"
)

// AlgebraError reports a linear-algebra failure while preparing the control
// law, e.g. a singular metric matrix. A feasible certificate should never
// produce one, but the path exists rather than trusting the solver.
type AlgebraError struct {
	Op  string
	Err error
}

func (e *AlgebraError) Error() string {
	return fmt.Sprintf("control: %s: %v", e.Op, e.Err)
}

func (e *AlgebraError) Unwrap() error { return e.Err }

// Contraction implements the CCM feedback law
//
//	u(x) = -0.5·ρ·B(x)ᵀ·W⁻¹·(x - x_eq)
//
// where (W, ρ) come from the LMI certificate and x_eq from the explicit
// equilibrium policy. With an infeasible certificate the law degrades to zero
// input, equivalent to running open loop.
type Contraction struct {
	feasible bool
	rho      float64
	winv     *mat.Dense
	b        [][]*symexpr.Compiled
	names    []string
	eq       sim.State
	n, m     int
	defaults int
	log      *slog.Logger
}

// NewContraction builds the law from a config snapshot and its certificate.
// An infeasible or mismatched certificate yields a zero-output controller;
// a singular W is an AlgebraError.
func NewContraction(cfg *system.Config, cert *lmi.Certificate, eng *symexpr.Engine) (*Contraction, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Contraction{
		names: cfg.BindingNames(),
		eq:    cfg.EquilibriumState(),
		n:     cfg.N(),
		m:     cfg.M(),
		log:   slog.Default(),
	}
	if !cert.Usable(c.n) {
		return c, nil
	}

	w := mat.NewDense(c.n, c.n, nil)
	for i, row := range cert.W {
		for j, v := range row {
			w.Set(i, j, v)
		}
	}
	winv := mat.NewDense(c.n, c.n, nil)
	if err := winv.Inverse(w); err != nil {
		return nil, &AlgebraError{Op: "invert metric W", Err: err}
	}

	c.b = make([][]*symexpr.Compiled, c.n)
	for i, row := range cfg.B {
		c.b[i] = make([]*symexpr.Compiled, c.m)
		for j, src := range row {
			prog, err := eng.Compile(src)
			if err != nil {
				c.defaults++
				c.log.Warn("input matrix entry defaulted to 0", "row", i, "col", j, "err", err)
				prog, _ = eng.Compile("0")
			}
			c.b[i][j] = prog
		}
	}

	c.winv = winv
	c.rho = cert.Rho
	c.feasible = true
	return c, nil
}

func (c *Contraction) Compute(x sim.State, t float64) sim.Control {
	u := make(sim.Control, c.m)
	if !c.feasible {
		return u
	}

	bindings := make(map[string]float64, c.n)
	diff := make([]float64, c.n)
	for i, name := range c.names {
		bindings[name] = x[i]
		diff[i] = x[i] - c.eq[i]
	}

	// v = W⁻¹ (x - x_eq)
	var v mat.VecDense
	v.MulVec(c.winv, mat.NewVecDense(c.n, diff))

	for j := 0; j < c.m; j++ {
		sum := 0.0
		for i := 0; i < c.n; i++ {
			bij, err := c.b[i][j].Eval(bindings)
			if err != nil {
				c.defaults++
				c.log.Debug("input matrix evaluation defaulted to 0",
					"row", i, "col", j, "err", err)
				continue
			}
			sum += bij * v.AtVec(i)
		}
		u[j] = -0.5 * c.rho * sum
	}
	return u
}

// Defaults reports how many degraded substitutions occurred so far.
func (c *Contraction) Defaults() int { return c.defaults }
