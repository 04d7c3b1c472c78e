package jacobian

import (
	"math"
	"testing"

	"ccmkit/internal/symexpr"
)

func TestLinearSystemJacobianIsConstant(t *testing.T) {
	// f = Ax with A = [[0, 1], [-2, -3]]: the Jacobian equals A at any point
	eng := symexpr.New()
	jac := Build([]string{"x2", "-2*x1 - 3*x2"}, []string{"x1", "x2"}, eng)

	if jac.Defaults != 0 {
		t.Fatalf("well-formed system produced %d defaults", jac.Defaults)
	}

	want := [][]float64{{0, 1}, {-2, -3}}
	for _, point := range []map[string]float64{
		{"x1": 0, "x2": 0},
		{"x1": 5, "x2": -3},
		{"x1": -100, "x2": 0.001},
	} {
		got, defaults := jac.Eval(eng, point)
		if defaults != 0 {
			t.Fatalf("evaluation produced %d defaults", defaults)
		}
		for i := range want {
			for j := range want[i] {
				if math.Abs(got[i][j]-want[i][j]) > 1e-12 {
					t.Errorf("J[%d][%d] at %v: expected %f, got %f",
						i, j, point, want[i][j], got[i][j])
				}
			}
		}
	}
}

func TestNonlinearJacobian(t *testing.T) {
	eng := symexpr.New()
	jac := Build([]string{"omega", "-sin(theta)"}, []string{"theta", "omega"}, eng)

	got, defaults := jac.Eval(eng, map[string]float64{"theta": 0.5, "omega": 2})
	if defaults != 0 {
		t.Fatalf("evaluation produced %d defaults", defaults)
	}
	if math.Abs(got[1][0]+math.Cos(0.5)) > 1e-12 {
		t.Errorf("d(-sin θ)/dθ at 0.5: expected %f, got %f", -math.Cos(0.5), got[1][0])
	}
	if got[0][1] != 1 {
		t.Errorf("d(ω)/dω should be 1, got %f", got[0][1])
	}
}

func TestEmptyFieldRowDefaultsToZero(t *testing.T) {
	eng := symexpr.New()
	jac := Build([]string{"  ", "x1"}, []string{"x1", "x2"}, eng)

	for j, entry := range jac.Entries[0] {
		if entry != "0" {
			t.Errorf("empty row entry %d should be \"0\", got %q", j, entry)
		}
	}
	if jac.Defaults != 0 {
		t.Errorf("empty row is not a degraded entry, got %d defaults", jac.Defaults)
	}
}

func TestBlankStateNameDefaultsToZero(t *testing.T) {
	eng := symexpr.New()
	jac := Build([]string{"x1 + x1", "x1"}, []string{"x1", ""}, eng)

	if jac.Entries[0][1] != "0" {
		t.Errorf("blank-name column should be \"0\", got %q", jac.Entries[0][1])
	}
	if jac.Entries[0][0] != "2" {
		t.Errorf("d(x1+x1)/dx1 should simplify to \"2\", got %q", jac.Entries[0][0])
	}
}

func TestMalformedFieldCountsDefault(t *testing.T) {
	eng := symexpr.New()
	jac := Build([]string{"x1 +* 3"}, []string{"x1"}, eng)

	if jac.Entries[0][0] != "0" {
		t.Errorf("malformed field should degrade to \"0\", got %q", jac.Entries[0][0])
	}
	if jac.Defaults != 1 {
		t.Errorf("expected 1 counted default, got %d", jac.Defaults)
	}
}

func TestDeterministic(t *testing.T) {
	eng := symexpr.New()
	f := []string{"x2^2", "sin(x1)*x2"}
	names := []string{"x1", "x2"}

	a := Build(f, names, eng)
	b := Build(f, names, eng)
	for i := range a.Entries {
		for j := range a.Entries[i] {
			if a.Entries[i][j] != b.Entries[i][j] {
				t.Errorf("entry (%d,%d) differs between builds: %q vs %q",
					i, j, a.Entries[i][j], b.Entries[i][j])
			}
		}
	}
}
