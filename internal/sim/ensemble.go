package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Ensemble runs the same controlled system from several initial conditions.
// Runs are independent, so they fan out across goroutines; each run gets its
// own Simulator because dynamics instances keep scratch state.
type Ensemble struct {
	build func() *Simulator
}

// NewEnsemble takes a factory instead of a shared Simulator so each parallel
// run owns its dynamics and controller.
func NewEnsemble(build func() *Simulator) *Ensemble {
	return &Ensemble{build: build}
}

func (e *Ensemble) Run(ctx context.Context, starts []State, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(starts))
	g, ctx := errgroup.WithContext(ctx)
	for i, x0 := range starts {
		i, x0 := i, x0
		g.Go(func() error {
			r, err := e.build().Run(ctx, x0, cfg)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
