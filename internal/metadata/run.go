package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RunFileName is the manifest written into each output directory.
const RunFileName = "run.json"

// RunManifest describes one generation run.
type RunManifest struct {
	RunID     string    `json:"run_id"`
	Generator string    `json:"generator"`
	Version   string    `json:"version"`
	Seed      int64     `json:"seed"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished,omitempty"`
	Generated int       `json:"generated"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Config    any       `json:"config,omitempty"`
}

// NewRunManifest starts a manifest with a fresh run id.
func NewRunManifest(generator, version string, seed int64, cfg any) *RunManifest {
	return &RunManifest{
		RunID:     uuid.NewString(),
		Generator: generator,
		Version:   version,
		Seed:      seed,
		Started:   time.Now().UTC(),
		Config:    cfg,
	}
}

// Write stores the manifest as dir/run.json, replacing an earlier run's.
func (m *RunManifest) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run manifest: %w", err)
	}
	path := filepath.Join(dir, RunFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadRunManifest loads dir/run.json.
func ReadRunManifest(dir string) (*RunManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, RunFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read run manifest: %w", err)
	}
	var m RunManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse run manifest: %w", err)
	}
	return &m, nil
}
