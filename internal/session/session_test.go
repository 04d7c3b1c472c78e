package session

import (
	"context"
	"errors"
	"math"
	"testing"

	"ccmkit/internal/lmi"
	"ccmkit/internal/sim"
	"ccmkit/internal/symexpr"
	"ccmkit/internal/system"
)

func testConfig() *system.Config {
	return &system.Config{
		Name: "linear",
		States: []system.StateVariable{
			{Name: "x1", Min: -1, Max: 1, Init: 1},
			{Name: "x2", Min: -1, Max: 1, Init: 0},
		},
		F:   []string{"x2", "-2*x1 - 3*x2"},
		B:   [][]string{{"0"}, {"1"}},
		Q:   []float64{1, 1},
		LMI: system.LMIParams{Lambda: 0.5, AlphaMin: 0.1, AlphaMax: 10},
	}
}

func feasibleCert() *lmi.Certificate {
	return &lmi.Certificate{
		Feasible: true,
		W:        [][]float64{{2, 0}, {0, 2}},
		Rho:      1,
	}
}

func TestJacobianDerivedEagerly(t *testing.T) {
	sess, err := New(testConfig(), symexpr.New())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	jac := sess.Jacobian()
	if jac == nil || jac.N != 2 {
		t.Fatalf("jacobian not derived: %+v", jac)
	}
	if jac.Entries[1][0] != "-2" {
		t.Errorf("J[1][0] should be -2, got %q", jac.Entries[1][0])
	}
}

func TestClosedLoopWithoutCertificate(t *testing.T) {
	sess, err := New(testConfig(), symexpr.New())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}

	result, err := sess.Simulate(context.Background(), ClosedLoop, sim.Config{Dt: 0.01, Duration: 1})
	if err == nil {
		t.Fatal("closed loop without certificate must be rejected")
	}
	var pre *sim.PreconditionError
	if !errors.As(err, &pre) {
		t.Errorf("expected PreconditionError, got %T: %v", err, err)
	}
	if result != nil {
		t.Error("rejected run must not return a trajectory")
	}
}

func TestClosedLoopWithInfeasibleCertificate(t *testing.T) {
	sess, err := New(testConfig(), symexpr.New())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if err := sess.SetCertificate(lmi.Infeasible()); err != nil {
		t.Fatalf("set certificate failed: %v", err)
	}

	_, err = sess.Simulate(context.Background(), ClosedLoop, sim.Config{Dt: 0.01, Duration: 1})
	var pre *sim.PreconditionError
	if !errors.As(err, &pre) {
		t.Errorf("infeasible certificate must be a precondition failure, got %v", err)
	}
}

func TestConfigChangeInvalidatesCertificate(t *testing.T) {
	sess, err := New(testConfig(), symexpr.New())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if err := sess.SetCertificate(feasibleCert()); err != nil {
		t.Fatalf("set certificate failed: %v", err)
	}
	if sess.Certificate() == nil {
		t.Fatal("certificate should be held")
	}

	cfg := testConfig()
	cfg.F[0] = "2*x2"
	if err := sess.SetConfig(cfg); err != nil {
		t.Fatalf("set config failed: %v", err)
	}
	if sess.Certificate() != nil {
		t.Error("config change must drop the certificate")
	}
}

func TestStaleCertificateRejected(t *testing.T) {
	sess, err := New(testConfig(), symexpr.New())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	cert := feasibleCert()
	cert.Fingerprint = "someone-else's-config"
	if err := sess.SetCertificate(cert); err == nil {
		t.Error("certificate stamped for another config must be rejected")
	}
}

func TestOpenLoopSimulation(t *testing.T) {
	sess, err := New(testConfig(), symexpr.New())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	result, err := sess.Simulate(context.Background(), OpenLoop, sim.Config{Dt: 0.01, Duration: 2})
	if err != nil {
		t.Fatalf("open loop run failed: %v", err)
	}
	if len(result.Points) != 201 {
		t.Fatalf("expected 201 points, got %d", len(result.Points))
	}
	for _, p := range result.Points {
		for _, u := range p.U {
			if u != 0 {
				t.Fatal("open loop telemetry must carry zero input")
			}
		}
	}
	// the linear system ẋ=(x2, -2x1-3x2) is stable: the state should shrink
	if result.Final().State.Norm() >= (sim.State{1, 0}).Norm() {
		t.Errorf("stable system should contract, final %v", result.Final().State)
	}
}

func TestClosedLoopSimulation(t *testing.T) {
	sess, err := New(testConfig(), symexpr.New())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if err := sess.SetCertificate(feasibleCert()); err != nil {
		t.Fatalf("set certificate failed: %v", err)
	}
	result, err := sess.Simulate(context.Background(), ClosedLoop, sim.Config{Dt: 0.01, Duration: 2})
	if err != nil {
		t.Fatalf("closed loop run failed: %v", err)
	}
	sawInput := false
	for _, p := range result.Points {
		if len(p.U) == 1 && p.U[0] != 0 {
			sawInput = true
			break
		}
	}
	if !sawInput {
		t.Error("closed loop run should apply a non-zero input somewhere")
	}
	if math.IsNaN(result.Final().State.Norm()) {
		t.Error("closed loop run should stay finite")
	}
}

func TestParseMode(t *testing.T) {
	if _, err := ParseMode("open"); err != nil {
		t.Errorf("open should parse: %v", err)
	}
	if _, err := ParseMode("closed"); err != nil {
		t.Errorf("closed should parse: %v", err)
	}
	if _, err := ParseMode("sideways"); err == nil {
		t.Error("unknown mode should error")
	}
}
