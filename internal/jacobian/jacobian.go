package jacobian

import (
	"log/slog"
	"strings"

	"ccmkit/internal/symexpr"
)

// Matrix holds the symbolic Jacobian J[i][j] = df_i/dx_j. It is derived data:
// rebuilt from a config snapshot, never edited in place.
type Matrix struct {
	N       int
	Entries [][]string

	// Defaults counts entries degraded to "0" because differentiation or
	// simplification failed. Zero for well-formed systems.
	Defaults int
}

// Build derives the n×n Jacobian of the vector field f with respect to the
// given state names. Failures degrade per entry: a blank field row or blank
// state name yields "0", and a differentiation error yields "0" with the
// substitution counted and logged. Build never fails.
func Build(f []string, names []string, eng *symexpr.Engine) *Matrix {
	n := len(f)
	m := &Matrix{N: n, Entries: make([][]string, n)}

	for i := range m.Entries {
		row := make([]string, n)
		for j := range row {
			row[j] = "0"
		}
		m.Entries[i] = row

		field := strings.TrimSpace(f[i])
		if field == "" {
			continue
		}
		for j := 0; j < n && j < len(names); j++ {
			name := strings.TrimSpace(names[j])
			if name == "" {
				continue
			}
			d, err := eng.Differentiate(field, name)
			if err != nil {
				m.Defaults++
				slog.Debug("jacobian entry defaulted to 0",
					"row", i, "col", j, "field", field, "err", err)
				continue
			}
			row[j] = d
		}
	}
	return m
}

// Eval evaluates every entry at the given bindings. Entry-level evaluation
// failures default to 0; the second return value counts them.
func (m *Matrix) Eval(eng *symexpr.Engine, bindings map[string]float64) ([][]float64, int) {
	defaults := 0
	out := make([][]float64, m.N)
	for i, row := range m.Entries {
		out[i] = make([]float64, m.N)
		for j, src := range row {
			v, err := eng.Evaluate(src, bindings)
			if err != nil {
				defaults++
				slog.Debug("jacobian evaluation defaulted to 0",
					"row", i, "col", j, "entry", src, "err", err)
				continue
			}
			out[i][j] = v
		}
	}
	return out, defaults
}
