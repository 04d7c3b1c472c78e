package lmi

import (
	"encoding/json"
	"fmt"
	"os"
)

// SolverInfo carries solver diagnostics verbatim. Pointer fields are nullable
// in the wire format.
type SolverInfo struct {
	SolverName   string   `json:"solver_name"`
	SetupTime    *float64 `json:"setup_time"`
	SolveTime    *float64 `json:"solve_time"`
	Status       string   `json:"status"`
	OptimalValue *float64 `json:"optimal_value"`
}

// Violations reports per-constraint verification of the returned solution.
type Violations struct {
	HNegativeDefinite     *bool `json:"H_negative_definite"`
	DPositiveSemidefinite *bool `json:"D_positive_semidefinite"`
	WPositiveDefinite     *bool `json:"W_positive_definite"`
	WLowerBound           *bool `json:"W_lower_bound"`
	WUpperBound           *bool `json:"W_upper_bound"`
	RhoPositive           *bool `json:"rho_positive"`
}

// Certificate is the solver's output: the contraction metric W, its inverse
// M, the rate rho, and eigenvalue diagnostics of the certifying inequality.
// A certificate is only meaningful for the config snapshot it was solved
// against; Fingerprint records that snapshot.
type Certificate struct {
	Feasible bool        `json:"feasible"`
	W        [][]float64 `json:"W"`
	M        [][]float64 `json:"M"`
	Rho      float64     `json:"rho"`

	MinEigH *float64 `json:"min_eig_h"`
	MaxEigH *float64 `json:"max_eig_h"`
	MinEigD *float64 `json:"min_eig_d"`
	MaxEigD *float64 `json:"max_eig_d"`
	MinEigW float64  `json:"min_eig_w"`
	MaxEigW float64  `json:"max_eig_w"`
	MinEigM float64  `json:"min_eig_m"`
	MaxEigM float64  `json:"max_eig_m"`

	SolverInfo *SolverInfo `json:"solver_info"`
	Violations *Violations `json:"constraints_violation"`

	Fingerprint string `json:"fingerprint,omitempty"`
}

// Infeasible is the degenerate certificate every failure path collapses to.
func Infeasible() *Certificate {
	return &Certificate{Feasible: false, Rho: 0}
}

// Usable reports whether the certificate can back a closed-loop run for a
// system of n states.
func (c *Certificate) Usable(n int) bool {
	if c == nil || !c.Feasible || c.Rho < 0 || len(c.W) != n {
		return false
	}
	for _, row := range c.W {
		if len(row) != n {
			return false
		}
	}
	return true
}

// Stale reports whether the certificate was solved for a different config
// snapshot.
func (c *Certificate) Stale(fingerprint string) bool {
	return c.Fingerprint != fingerprint
}

func LoadCertificate(path string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cert := &Certificate{}
	if err := json.Unmarshal(data, cert); err != nil {
		return nil, fmt.Errorf("lmi: parse certificate %s: %w", path, err)
	}
	return cert, nil
}

func SaveCertificate(path string, cert *Certificate) error {
	data, err := json.MarshalIndent(cert, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
