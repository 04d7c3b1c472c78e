package system

import (
	"log/slog"
	"strings"

	"ccmkit/internal/sim"
	"ccmkit/internal/symexpr"
)

// VectorField evaluates the configured dynamics dx/dt = f(x) + B(x)·u.
// Entries are compiled once at construction. Per-entry evaluation failures
// degrade to 0 so a run completes best-effort; every substitution is counted
// and logged so callers can assert none occurred for well-formed systems.
//
// A VectorField is not safe for concurrent use; the simulation loop is
// strictly sequential anyway.
type VectorField struct {
	names    []string
	f        []*symexpr.Compiled
	b        [][]*symexpr.Compiled
	n, m     int
	bindings map[string]float64
	defaults int
	log      *slog.Logger
}

func NewVectorField(cfg *Config, eng *symexpr.Engine) (*VectorField, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v := &VectorField{
		names:    cfg.BindingNames(),
		n:        cfg.N(),
		m:        cfg.M(),
		bindings: make(map[string]float64, cfg.N()),
		log:      slog.Default(),
	}
	zero, err := eng.Compile("0")
	if err != nil {
		return nil, err
	}

	v.f = make([]*symexpr.Compiled, v.n)
	for i, src := range cfg.F {
		v.f[i] = v.compileOrZero(eng, src, zero, "f", i)
	}
	v.b = make([][]*symexpr.Compiled, v.n)
	for i, row := range cfg.B {
		v.b[i] = make([]*symexpr.Compiled, v.m)
		for j, src := range row {
			v.b[i][j] = v.compileOrZero(eng, src, zero, "B", i)
		}
	}
	return v, nil
}

func (v *VectorField) compileOrZero(eng *symexpr.Engine, src string, zero *symexpr.Compiled, what string, row int) *symexpr.Compiled {
	src = strings.TrimSpace(src)
	if src == "" {
		return zero
	}
	c, err := eng.Compile(src)
	if err != nil {
		v.defaults++
		v.log.Warn("dynamics entry defaulted to 0", "matrix", what, "row", row, "err", err)
		return zero
	}
	return c
}

func (v *VectorField) Derive(x sim.State, u sim.Control, t float64) sim.State {
	for i, name := range v.names {
		v.bindings[name] = x[i]
	}
	dx := make(sim.State, v.n)
	for i := range dx {
		dx[i] = v.eval(v.f[i])
		for j := 0; j < v.m && j < len(u); j++ {
			if u[j] != 0 {
				dx[i] += v.eval(v.b[i][j]) * u[j]
			}
		}
	}
	return dx
}

func (v *VectorField) eval(c *symexpr.Compiled) float64 {
	val, err := c.Eval(v.bindings)
	if err != nil {
		v.defaults++
		v.log.Debug("dynamics evaluation defaulted to 0", "expr", c.Source(), "err", err)
		return 0
	}
	return val
}

// EvalB evaluates the input coupling matrix at x.
func (v *VectorField) EvalB(x sim.State) [][]float64 {
	for i, name := range v.names {
		v.bindings[name] = x[i]
	}
	out := make([][]float64, v.n)
	for i := range out {
		out[i] = make([]float64, v.m)
		for j := 0; j < v.m; j++ {
			out[i][j] = v.eval(v.b[i][j])
		}
	}
	return out
}

func (v *VectorField) StateDim() int   { return v.n }
func (v *VectorField) ControlDim() int { return v.m }

// Defaults reports how many degraded substitutions occurred so far.
func (v *VectorField) Defaults() int { return v.defaults }
