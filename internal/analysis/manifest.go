package analysis

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"pcareport/internal/config"
)

// Manifest records what a run did and every file it produced.
type Manifest struct {
	mu sync.RWMutex `json:"-"`

	RunID     string         `json:"run_id"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time,omitempty"`
	Status    string         `json:"status"` // "running", "completed", "failed"
	Error     string         `json:"error,omitempty"`
	Config    *config.Config `json:"config,omitempty"`

	Input     *Artifact        `json:"input,omitempty"`
	Stages    []StageExecution `json:"stages"`
	Artifacts []Artifact       `json:"artifacts"`
}

// StageExecution tracks the execution of a single stage
type StageExecution struct {
	StageID   string                 `json:"stage_id"`
	StageName string                 `json:"stage_name"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Duration  string                 `json:"duration"`
	Status    StageStatus            `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Artifact is one file read or written by the run. Path is relative to the
// output directory when the file lives under it.
type Artifact struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	BLAKE2b string `json:"blake2b_256"`
}

// NewManifest creates a manifest for a run
func NewManifest(runID string, cfg *config.Config) *Manifest {
	return &Manifest{
		RunID:     runID,
		StartTime: time.Now(),
		Status:    "running",
		Config:    cfg,
		Stages:    []StageExecution{},
		Artifacts: []Artifact{},
	}
}

// RecordStageStart records the start of a stage execution
func (m *Manifest) RecordStageStart(stageID, stageName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Stages = append(m.Stages, StageExecution{
		StageID:   stageID,
		StageName: stageName,
		StartTime: time.Now(),
		Status:    StageStatusRunning,
	})
}

// RecordStageCompletion records the completion of a stage
func (m *Manifest) RecordStageCompletion(stageID string, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.find(stageID); s != nil {
		s.EndTime = time.Now()
		s.Duration = s.EndTime.Sub(s.StartTime).String()
		s.Status = StageStatusCompleted
		if len(metadata) > 0 {
			s.Metadata = metadata
		}
	}
}

// RecordStageFailure records a stage failure and fails the run
func (m *Manifest) RecordStageFailure(stageID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.find(stageID); s != nil {
		s.EndTime = time.Now()
		s.Duration = s.EndTime.Sub(s.StartTime).String()
		s.Status = StageStatusFailed
		s.Error = err.Error()
	}
	m.Status = "failed"
	m.Error = fmt.Sprintf("Stage %s failed: %v", stageID, err)
}

func (m *Manifest) find(stageID string) *StageExecution {
	for i := len(m.Stages) - 1; i >= 0; i-- {
		if m.Stages[i].StageID == stageID {
			return &m.Stages[i]
		}
	}
	return nil
}

// Finish stamps the end time. A run that did not fail is completed.
func (m *Manifest) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()
	if m.Status == "running" {
		m.Status = "completed"
	}
}

// IsStageCompleted checks if a stage has been completed
func (m *Manifest) IsStageCompleted(stageID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.find(stageID)
	return s != nil && s.Status == StageStatusCompleted
}

// SetInput records the checksum of the input file
func (m *Manifest) SetInput(path string) error {
	a, err := newArtifact("", "input", path, path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Input = &a
	return nil
}

// AddArtifact checksums a produced file and records it under rel
func (m *Manifest) AddArtifact(stage, kind, path, rel string) error {
	a, err := newArtifact(stage, kind, path, rel)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Artifacts = append(m.Artifacts, a)
	return nil
}

// ArtifactsOf returns the artifacts produced by one stage
func (m *Manifest) ArtifactsOf(stage string) []Artifact {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Artifact
	for _, a := range m.Artifacts {
		if a.Stage == stage {
			out = append(out, a)
		}
	}
	return out
}

func newArtifact(stage, kind, path, rel string) (Artifact, error) {
	sum, size, err := Checksum(path)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Stage:   stage,
		Kind:    kind,
		Path:    filepath.ToSlash(rel),
		Size:    size,
		BLAKE2b: sum,
	}, nil
}

// Checksum returns the hex BLAKE2b-256 digest and size of a file
func Checksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Save writes the manifest as indented JSON
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadManifest reads a manifest written by Save
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Verify recomputes the checksum of every artifact under root and returns
// the relative paths that are missing or changed.
func (m *Manifest) Verify(root string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var changed []string
	for _, a := range m.Artifacts {
		sum, _, err := Checksum(filepath.Join(root, filepath.FromSlash(a.Path)))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				changed = append(changed, a.Path)
				continue
			}
			return nil, err
		}
		if sum != a.BLAKE2b {
			changed = append(changed, a.Path)
		}
	}
	return changed, nil
}
