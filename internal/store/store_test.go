package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"ccmkit/internal/sim"
)

func sampleResult() *sim.Result {
	return &sim.Result{Points: []sim.Point{
		{T: 0, State: sim.State{1, 0}, U: sim.Control{0}},
		{T: 0.1, State: sim.State{0.9, -0.2}, U: sim.Control{0.05}},
		{T: 0.2, State: sim.State{0.8, -0.3}, U: sim.Control{0.08}},
	}}
}

func TestSaveAndList(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := sim.Config{Dt: 0.1, Duration: 0.2}
	runID, err := s.Save("pendulum", "closed", cfg, sampleResult(), map[string]float64{"control_effort": 0.0089})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Fatal("save must return a run id")
	}

	runs, err := s.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	meta := runs[0]
	if meta.ID != runID || meta.System != "pendulum" || meta.Mode != "closed" {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Points != 3 || meta.Dt != 0.1 || meta.Duration != 0.2 {
		t.Errorf("run parameters mismatch: %+v", meta)
	}
	if meta.Metrics["control_effort"] != 0.0089 {
		t.Errorf("metrics not persisted: %+v", meta.Metrics)
	}
}

func TestTrajectoryCSVLayout(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	runID, err := s.Save("linear", "open", sim.Config{Dt: 0.1, Duration: 0.2}, sampleResult(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, runID, "trajectory.csv"))
	if err != nil {
		t.Fatalf("trajectory missing: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("csv parse failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	want := []string{"t", "x1", "x2", "u1"}
	for i, col := range want {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
	if rows[1][1] != "1" || rows[2][2] != "-0.2" {
		t.Errorf("unexpected values: %v", rows[1:])
	}
}

func TestListEmptyStore(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"))
	runs, err := s.List()
	if err != nil {
		t.Fatalf("list on missing dir should be quiet: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
