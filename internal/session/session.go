package session

import (
	"context"
	"fmt"

	"ccmkit/internal/control"
	"ccmkit/internal/integrators"
	"ccmkit/internal/jacobian"
	"ccmkit/internal/lmi"
	"ccmkit/internal/sim"
	"ccmkit/internal/stability"
	"ccmkit/internal/symexpr"
	"ccmkit/internal/system"
)

// Mode selects whether the feedback term is included in the dynamics.
type Mode string

const (
	OpenLoop   Mode = "open"
	ClosedLoop Mode = "closed"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case OpenLoop, ClosedLoop:
		return Mode(s), nil
	}
	return "", fmt.Errorf("session: unknown mode %q (want open or closed)", s)
}

// Session owns one analysis lifecycle: a config snapshot, its eagerly derived
// Jacobian, and the certificate solved for that snapshot. Replacing the
// config re-derives everything and invalidates the certificate.
type Session struct {
	cfg         *system.Config
	fingerprint string
	eng         *symexpr.Engine
	jac         *jacobian.Matrix
	cert        *lmi.Certificate
}

func New(cfg *system.Config, eng *symexpr.Engine) (*Session, error) {
	s := &Session{eng: eng}
	if err := s.SetConfig(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// SetConfig installs a new snapshot: the Jacobian is re-derived immediately
// and any held certificate is dropped.
func (s *Session) SetConfig(cfg *system.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	s.fingerprint = cfg.Fingerprint()
	s.jac = jacobian.Build(cfg.F, cfg.BindingNames(), s.eng)
	s.cert = nil
	return nil
}

func (s *Session) Config() *system.Config        { return s.cfg }
func (s *Session) Jacobian() *jacobian.Matrix    { return s.jac }
func (s *Session) Certificate() *lmi.Certificate { return s.cert }

// SetCertificate installs an externally obtained certificate. A certificate
// stamped for a different config snapshot is rejected; an unstamped one is
// adopted for the current snapshot.
func (s *Session) SetCertificate(cert *lmi.Certificate) error {
	if cert.Fingerprint == "" {
		cert.Fingerprint = s.fingerprint
	}
	if cert.Stale(s.fingerprint) {
		return fmt.Errorf("session: certificate was solved for a different system configuration")
	}
	s.cert = cert
	return nil
}

// Scan runs the grid eigenvalue scan over the current snapshot.
func (s *Session) Scan(ctx context.Context, gridSize float64) (stability.Result, error) {
	return stability.Scan(ctx, s.cfg, s.jac, gridSize, s.eng)
}

// Analyze sends the linearization to the external solver and keeps the
// resulting certificate, stamped with the current snapshot fingerprint.
// An unavailable solver yields an infeasible certificate, not an error.
func (s *Session) Analyze(ctx context.Context, client *lmi.Client) (*lmi.Certificate, error) {
	req, err := lmi.BuildRequest(s.cfg, s.jac, s.eng)
	if err != nil {
		return nil, err
	}
	cert := client.Solve(ctx, req)
	cert.Fingerprint = s.fingerprint
	s.cert = cert
	return cert, nil
}

// Simulate runs the system for the configured horizon. Closed-loop requires a
// feasible certificate for the current snapshot; otherwise a
// PreconditionError is returned with no integration performed.
func (s *Session) Simulate(ctx context.Context, mode Mode, cfg sim.Config) (*sim.Result, error) {
	simulator, err := s.buildSimulator(mode)
	if err != nil {
		return nil, err
	}
	return simulator.Run(ctx, s.cfg.InitialState(), cfg)
}

// SimulatorFactory returns a constructor for standalone simulators over the
// current snapshot, for callers running several trajectories in parallel
// (each simulator owns its dynamics and controller). Construction is
// validated once up front; repeat builds from the same snapshot are
// deterministic, so the factory itself cannot fail.
func (s *Session) SimulatorFactory(mode Mode) (func() *sim.Simulator, error) {
	if _, err := s.buildSimulator(mode); err != nil {
		return nil, err
	}
	return func() *sim.Simulator {
		simulator, _ := s.buildSimulator(mode)
		return simulator
	}, nil
}

func (s *Session) buildSimulator(mode Mode) (*sim.Simulator, error) {
	ctrl, err := s.controller(mode)
	if err != nil {
		return nil, err
	}
	field, err := system.NewVectorField(s.cfg, s.eng)
	if err != nil {
		return nil, err
	}
	return sim.New(field, integrators.NewRK4(), ctrl), nil
}

func (s *Session) controller(mode Mode) (sim.Controller, error) {
	switch mode {
	case OpenLoop:
		return control.NewNone(s.cfg.M()), nil
	case ClosedLoop:
		if !s.cert.Usable(s.cfg.N()) {
			return nil, &sim.PreconditionError{Reason: "closed-loop run requires a feasible certificate"}
		}
		if s.cert.Stale(s.fingerprint) {
			return nil, &sim.PreconditionError{Reason: "certificate is stale for the current configuration"}
		}
		return control.NewContraction(s.cfg, s.cert, s.eng)
	}
	return nil, fmt.Errorf("session: unknown mode %q", mode)
}
