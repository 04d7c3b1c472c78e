package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"ccmkit/internal/sim"
)

// Store persists simulation runs: one directory per run holding metadata
// JSON and the trajectory CSV.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	System    string             `json:"system"`
	Mode      string             `json:"mode"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Points    int                `json:"points"`
	Metrics   map[string]float64 `json:"metrics"`
}

func (s *Store) Save(systemName, mode string, cfg sim.Config, result *sim.Result, runMetrics map[string]float64) (string, error) {
	runID := fmt.Sprintf("%s_%d", systemName, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		System:    systemName,
		Mode:      mode,
		Timestamp: time.Now(),
		Dt:        cfg.Dt,
		Duration:  cfg.Duration,
		Points:    len(result.Points),
		Metrics:   runMetrics,
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, "metadata.json"), metaData, 0644); err != nil {
		return "", err
	}

	if err := s.writeTrajectory(filepath.Join(runDir, "trajectory.csv"), result); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) writeTrajectory(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if len(result.Points) == 0 {
		return nil
	}
	n := len(result.Points[0].State)
	m := len(result.Points[0].U)

	header := []string{"t"}
	for i := 0; i < n; i++ {
		header = append(header, fmt.Sprintf("x%d", i+1))
	}
	for j := 0; j < m; j++ {
		header = append(header, fmt.Sprintf("u%d", j+1))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, 1+n+m)
	for _, p := range result.Points {
		row = row[:0]
		row = append(row, strconv.FormatFloat(p.T, 'g', -1, 64))
		for _, v := range p.State {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, v := range p.U {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// List returns metadata for every stored run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, e.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}
