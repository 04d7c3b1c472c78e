package system

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StateVariable describes one state dimension: its binding name for
// expression evaluation, the scan bounds, and the initial condition.
type StateVariable struct {
	Name string  `yaml:"name"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Init float64 `yaml:"init"`
}

// LMIParams are forwarded to the external solver.
type LMIParams struct {
	Lambda         float64 `yaml:"lambda"`
	AlphaMin       float64 `yaml:"alpha_min"`
	AlphaMax       float64 `yaml:"alpha_max"`
	UseDConstraint bool    `yaml:"use_d_constraint"`
}

// Config is an immutable snapshot of the system under analysis. Derived data
// (Jacobian, scan results, certificates) is recomputed from a snapshot and
// never mutated in place; edits produce a new Config with a new fingerprint.
type Config struct {
	Name        string          `yaml:"name"`
	States      []StateVariable `yaml:"states"`
	F           []string        `yaml:"f"`
	B           [][]string      `yaml:"b"`
	Q           []float64       `yaml:"q"`
	LMI         LMIParams       `yaml:"lmi"`
	Equilibrium []float64       `yaml:"equilibrium,omitempty"`
}

func (c *Config) N() int { return len(c.States) }

func (c *Config) M() int {
	if len(c.B) == 0 {
		return 0
	}
	return len(c.B[0])
}

// BindingName returns the evaluation binding for state i, falling back to
// the positional default when the declared name is blank.
func (c *Config) BindingName(i int) string {
	name := strings.TrimSpace(c.States[i].Name)
	if name == "" {
		return fmt.Sprintf("x%d", i+1)
	}
	return name
}

func (c *Config) BindingNames() []string {
	names := make([]string, c.N())
	for i := range names {
		names[i] = c.BindingName(i)
	}
	return names
}

func (c *Config) InitialState() []float64 {
	x0 := make([]float64, c.N())
	for i, s := range c.States {
		x0[i] = s.Init
	}
	return x0
}

func (c *Config) Validate() error {
	n := c.N()
	if n < 1 {
		return fmt.Errorf("system: at least one state required")
	}
	if len(c.F) != n {
		return fmt.Errorf("system: f has %d rows, want %d", len(c.F), n)
	}
	if len(c.B) != n {
		return fmt.Errorf("system: B has %d rows, want %d", len(c.B), n)
	}
	m := c.M()
	if m < 1 {
		return fmt.Errorf("system: at least one input required")
	}
	for i, row := range c.B {
		if len(row) != m {
			return fmt.Errorf("system: B row %d has %d columns, want %d", i, len(row), m)
		}
	}
	seen := make(map[string]int, n)
	for i := range c.States {
		name := c.BindingName(i)
		if j, dup := seen[name]; dup {
			return fmt.Errorf("system: states %d and %d share name %q", j, i, name)
		}
		seen[name] = i
		if c.States[i].Min > c.States[i].Max {
			return fmt.Errorf("system: state %q has min > max", name)
		}
	}
	if c.LMI.Lambda <= 0 {
		return fmt.Errorf("system: lambda must be positive, got %f", c.LMI.Lambda)
	}
	if c.LMI.AlphaMin <= 0 {
		return fmt.Errorf("system: alpha_min must be positive, got %f", c.LMI.AlphaMin)
	}
	if c.LMI.AlphaMax < c.LMI.AlphaMin {
		return fmt.Errorf("system: alpha_max must be >= alpha_min")
	}
	if len(c.Q) != n {
		return fmt.Errorf("system: Q has %d weights, want %d", len(c.Q), n)
	}
	for i, q := range c.Q {
		if q < 0 {
			return fmt.Errorf("system: Q[%d] must be non-negative, got %f", i, q)
		}
	}
	if len(c.Equilibrium) != 0 && len(c.Equilibrium) != n {
		return fmt.Errorf("system: equilibrium has %d entries, want %d", len(c.Equilibrium), n)
	}
	return nil
}

// Fingerprint identifies a config snapshot. Certificates and scan results
// derived from one snapshot are invalid for any other.
func (c *Config) Fingerprint() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("system: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
