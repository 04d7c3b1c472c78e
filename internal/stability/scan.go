package stability

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"ccmkit/internal/jacobian"
	"ccmkit/internal/symexpr"
	"ccmkit/internal/system"
)

// Result aggregates the eigenvalue extrema over the whole grid. Per-point
// eigenvalues are not retained.
type Result struct {
	MinReal float64
	MaxReal float64
	MinImag float64
	MaxImag float64

	// GridPoints is the number of points actually evaluated.
	GridPoints int

	// EvalDefaults counts Jacobian entries that failed numeric evaluation
	// and were defaulted to 0. EigenDefaults counts points whose eigenvalue
	// computation failed or produced non-finite values; such points still
	// count toward GridPoints but contribute nothing to the extrema.
	EvalDefaults  int
	EigenDefaults int
}

// accum is one worker's running reduction. Min/max merging is associative,
// so the split across workers cannot change the result.
type accum struct {
	minRe, maxRe float64
	minIm, maxIm float64
	points       int
	evalDefaults int
	eigDefaults  int
}

func newAccum() accum {
	return accum{
		minRe: math.Inf(1), maxRe: math.Inf(-1),
		minIm: math.Inf(1), maxIm: math.Inf(-1),
	}
}

func (a *accum) merge(b accum) {
	a.minRe = math.Min(a.minRe, b.minRe)
	a.maxRe = math.Max(a.maxRe, b.maxRe)
	a.minIm = math.Min(a.minIm, b.minIm)
	a.maxIm = math.Max(a.maxIm, b.maxIm)
	a.points += b.points
	a.evalDefaults += b.evalDefaults
	a.eigDefaults += b.eigDefaults
}

// Scan evaluates the Jacobian at every grid point over the configured state
// bounds and reduces the eigenvalues to global real/imaginary extrema.
// Identical inputs produce bit-identical output regardless of worker count.
func Scan(ctx context.Context, cfg *system.Config, jac *jacobian.Matrix, gridSize float64, eng *symexpr.Engine) (Result, error) {
	if gridSize <= 0 {
		return Result{}, fmt.Errorf("stability: grid size must be positive, got %g", gridSize)
	}
	n := cfg.N()
	if jac.N != n {
		return Result{}, fmt.Errorf("stability: jacobian is %d×%d but system has %d states", jac.N, jac.N, n)
	}

	axes := make([][]float64, n)
	for i, s := range cfg.States {
		axes[i] = Samples(s.Min, s.Max, gridSize)
	}
	g := newGrid(axes)
	if g.total == 0 {
		return Result{}, nil
	}

	// compile every entry once; programs are safe for concurrent evaluation
	progs := make([][]*symexpr.Compiled, n)
	for i, row := range jac.Entries {
		progs[i] = make([]*symexpr.Compiled, n)
		for j, src := range row {
			c, err := eng.Compile(src)
			if err != nil {
				return Result{}, fmt.Errorf("stability: jacobian entry (%d,%d): %w", i, j, err)
			}
			progs[i][j] = c
		}
	}

	names := cfg.BindingNames()
	workers := runtime.GOMAXPROCS(0)
	if workers > g.total {
		workers = g.total
	}
	chunk := (g.total + workers - 1) / workers
	partials := make([]accum, workers)

	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > g.total {
			end = g.total
		}
		w := w
		eg.Go(func() error {
			partials[w] = scanRange(ctx, g, progs, names, start, end)
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	total := newAccum()
	for _, p := range partials {
		total.merge(p)
	}
	return total.finalize(), nil
}

func scanRange(ctx context.Context, g *grid, progs [][]*symexpr.Compiled, names []string, start, end int) accum {
	n := len(names)
	a := newAccum()
	coords := make([]float64, n)
	bindings := make(map[string]float64, n)
	data := make([]float64, n*n)
	dense := mat.NewDense(n, n, data)
	var eig mat.Eigen

	for k := start; k < end; k++ {
		if k%1024 == 0 && ctx.Err() != nil {
			return a
		}

		g.decode(k, coords)
		for i, name := range names {
			bindings[name] = coords[i]
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v, err := progs[i][j].Eval(bindings)
				if err != nil {
					a.evalDefaults++
					v = 0
				}
				data[i*n+j] = v
			}
		}

		a.points++
		if !eig.Factorize(dense, mat.EigenNone) {
			a.eigDefaults++
			continue
		}

		degraded := false
		for _, z := range eig.Values(nil) {
			re, im := real(z), imag(z)
			if math.IsNaN(re) || math.IsNaN(im) {
				degraded = true
				continue
			}
			a.minRe = math.Min(a.minRe, re)
			a.maxRe = math.Max(a.maxRe, re)
			a.minIm = math.Min(a.minIm, im)
			a.maxIm = math.Max(a.maxIm, im)
		}
		if degraded {
			a.eigDefaults++
		}
	}
	return a
}

func (a accum) finalize() Result {
	r := Result{
		MinReal:       a.minRe,
		MaxReal:       a.maxRe,
		MinImag:       a.minIm,
		MaxImag:       a.maxIm,
		GridPoints:    a.points,
		EvalDefaults:  a.evalDefaults,
		EigenDefaults: a.eigDefaults,
	}
	// no finite eigenvalue seen at all: report zeros, not infinities
	if math.IsInf(r.MinReal, 1) {
		r.MinReal, r.MaxReal = 0, 0
	}
	if math.IsInf(r.MinImag, 1) {
		r.MinImag, r.MaxImag = 0, 0
	}
	return r
}
