package stability

import (
	"context"
	"math"
	"testing"

	"ccmkit/internal/jacobian"
	"ccmkit/internal/symexpr"
	"ccmkit/internal/system"
)

func TestSamplesSpacing(t *testing.T) {
	s := Samples(0, 1, 0.5)
	if len(s) != 3 {
		t.Fatalf("expected 3 samples for [0,1] at 0.5, got %d", len(s))
	}
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(s[i]-want[i]) > 1e-12 {
			t.Errorf("sample %d: expected %f, got %f", i, want[i], s[i])
		}
	}
}

func TestSamplesDegenerate(t *testing.T) {
	s := Samples(2.5, 2.5, 0.1)
	if len(s) != 1 || s[0] != 2.5 {
		t.Errorf("degenerate dimension should be a single point, got %v", s)
	}
}

func TestSamplesEndpoints(t *testing.T) {
	s := Samples(-1, 1, 0.3)
	if s[0] != -1 || s[len(s)-1] != 1 {
		t.Errorf("both endpoints must be included, got %v", s)
	}
	if len(s) != 8 {
		t.Errorf("ceil(2/0.3)=7 intervals means 8 samples, got %d", len(s))
	}
}

func testConfig() *system.Config {
	return &system.Config{
		Name: "linear",
		States: []system.StateVariable{
			{Name: "x1", Min: -2, Max: 2},
			{Name: "x2", Min: -2, Max: 2},
		},
		F: []string{"x2", "-2*x1 - 3*x2"},
		B: [][]string{{"0"}, {"1"}},
		Q: []float64{1, 1},
		LMI: system.LMIParams{Lambda: 1, AlphaMin: 0.1, AlphaMax: 10},
	}
}

func TestScanGridPointCount(t *testing.T) {
	eng := symexpr.New()
	cfg := testConfig()
	jac := jacobian.Build(cfg.F, cfg.BindingNames(), eng)

	// 9 samples per dimension at grid 0.5 over [-2,2]
	result, err := Scan(context.Background(), cfg, jac, 0.5, eng)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.GridPoints != 81 {
		t.Errorf("expected 81 grid points, got %d", result.GridPoints)
	}
	if result.EvalDefaults != 0 || result.EigenDefaults != 0 {
		t.Errorf("well-formed system degraded: %d eval, %d eigen",
			result.EvalDefaults, result.EigenDefaults)
	}
}

func TestScanLinearSystemExtrema(t *testing.T) {
	// constant Jacobian [[0,1],[-2,-3]] has eigenvalues -1 and -2 everywhere
	eng := symexpr.New()
	cfg := testConfig()
	jac := jacobian.Build(cfg.F, cfg.BindingNames(), eng)

	result, err := Scan(context.Background(), cfg, jac, 1.0, eng)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if math.Abs(result.MinReal+2) > 1e-9 {
		t.Errorf("expected min real eigenvalue -2, got %f", result.MinReal)
	}
	if math.Abs(result.MaxReal+1) > 1e-9 {
		t.Errorf("expected max real eigenvalue -1, got %f", result.MaxReal)
	}
	if math.Abs(result.MinImag) > 1e-9 || math.Abs(result.MaxImag) > 1e-9 {
		t.Errorf("real spectrum should give zero imaginary extrema, got [%f, %f]",
			result.MinImag, result.MaxImag)
	}
}

func TestScanComplexSpectrum(t *testing.T) {
	// J = [[0,1],[-1,0]] has eigenvalues ±i
	eng := symexpr.New()
	cfg := testConfig()
	cfg.F = []string{"x2", "-x1"}
	jac := jacobian.Build(cfg.F, cfg.BindingNames(), eng)

	result, err := Scan(context.Background(), cfg, jac, 1.0, eng)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if math.Abs(result.MinImag+1) > 1e-9 || math.Abs(result.MaxImag-1) > 1e-9 {
		t.Errorf("expected imaginary extrema ±1, got [%f, %f]",
			result.MinImag, result.MaxImag)
	}
}

func TestScanIdempotent(t *testing.T) {
	eng := symexpr.New()
	cfg := testConfig()
	cfg.F = []string{"x2", "(1 - x1^2)*x2 - x1"}
	jac := jacobian.Build(cfg.F, cfg.BindingNames(), eng)

	a, err := Scan(context.Background(), cfg, jac, 0.25, eng)
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	b, err := Scan(context.Background(), cfg, jac, 0.25, eng)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if a != b {
		t.Errorf("scans with identical inputs differ:\n%+v\n%+v", a, b)
	}
}

func TestScanDegenerateDimension(t *testing.T) {
	eng := symexpr.New()
	cfg := testConfig()
	cfg.States[1].Min = 1
	cfg.States[1].Max = 1
	jac := jacobian.Build(cfg.F, cfg.BindingNames(), eng)

	result, err := Scan(context.Background(), cfg, jac, 0.5, eng)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.GridPoints != 9 {
		t.Errorf("degenerate second dimension: expected 9 points, got %d", result.GridPoints)
	}
}

func TestScanRejectsBadGridSize(t *testing.T) {
	eng := symexpr.New()
	cfg := testConfig()
	jac := jacobian.Build(cfg.F, cfg.BindingNames(), eng)

	if _, err := Scan(context.Background(), cfg, jac, 0, eng); err == nil {
		t.Error("expected error for zero grid size")
	}
	if _, err := Scan(context.Background(), cfg, jac, -1, eng); err == nil {
		t.Error("expected error for negative grid size")
	}
}

func TestScanCancellation(t *testing.T) {
	eng := symexpr.New()
	cfg := testConfig()
	jac := jacobian.Build(cfg.F, cfg.BindingNames(), eng)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Scan(ctx, cfg, jac, 0.5, eng); err == nil {
		t.Error("expected error for canceled context")
	}
}
