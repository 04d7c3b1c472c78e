package system

import (
	"fmt"
	"sort"
)

var presets = map[string]*Config{
	"linear": {
		Name: "linear",
		States: []StateVariable{
			{Name: "x1", Min: -2, Max: 2, Init: 1.0},
			{Name: "x2", Min: -2, Max: 2, Init: 0.0},
		},
		F: []string{"x2", "-2*x1 - 3*x2"},
		B: [][]string{{"0"}, {"1"}},
		Q: []float64{1, 1},
		LMI: LMIParams{Lambda: 0.5, AlphaMin: 0.1, AlphaMax: 10.0},
	},
	"vanderpol": {
		Name: "vanderpol",
		States: []StateVariable{
			{Name: "x1", Min: -3, Max: 3, Init: 1.0},
			{Name: "x2", Min: -3, Max: 3, Init: 0.0},
		},
		F: []string{"x2", "(1 - x1^2)*x2 - x1"},
		B: [][]string{{"0"}, {"1"}},
		Q: []float64{1, 1},
		LMI: LMIParams{Lambda: 1.0, AlphaMin: 0.1, AlphaMax: 20.0},
	},
	"pendulum": {
		Name: "pendulum",
		States: []StateVariable{
			{Name: "theta", Min: -1.5, Max: 1.5, Init: 0.5},
			{Name: "omega", Min: -4, Max: 4, Init: 0.0},
		},
		F: []string{"omega", "-9.81*sin(theta) - 0.2*omega"},
		B: [][]string{{"0"}, {"1"}},
		Q: []float64{1, 1},
		LMI: LMIParams{Lambda: 0.8, AlphaMin: 0.1, AlphaMax: 15.0},
	},
}

// Preset returns a copy of the named built-in system.
func Preset(name string) (*Config, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("system: unknown preset %q", name)
	}
	cp := *p
	return &cp, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func DefaultConfig() *Config {
	cfg, _ := Preset("linear")
	return cfg
}
