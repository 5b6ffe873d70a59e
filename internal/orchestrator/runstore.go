package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const latestPointer = "latest"

// RunStore persists provisioning runs as YAML documents, one file per run,
// plus a pointer file naming the most recent run.
type RunStore struct {
	dir string
}

// NewRunStore creates a store rooted at dir, creating it if needed.
func NewRunStore(dir string) (*RunStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}
	return &RunStore{dir: dir}, nil
}

// Save writes the run atomically and updates the latest pointer.
func (s *RunStore) Save(run *Run) error {
	data, err := yaml.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", run.ID, err)
	}

	path := s.runPath(run.ID)
	tmp, err := os.CreateTemp(s.dir, ".run-*.yml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write run %s: %w", run.ID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync run %s: %w", run.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace run file: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, latestPointer), []byte(run.ID+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to update latest pointer: %w", err)
	}
	return nil
}

// Load reads a run by ID.
func (s *RunStore) Load(id string) (*Run, error) {
	data, err := os.ReadFile(s.runPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", id, err)
	}

	var run Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run %s: %w", id, err)
	}
	return &run, nil
}

// Latest returns the most recently saved run, or (nil, nil) when no run has
// ever been recorded.
func (s *RunStore) Latest() (*Run, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, latestPointer))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read latest pointer: %w", err)
	}

	id := strings.TrimSpace(string(data))
	if id == "" {
		return nil, nil
	}
	return s.Load(id)
}

// List returns the IDs of all persisted runs, sorted.
func (s *RunStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yml") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".yml"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RunStore) runPath(id string) string {
	return filepath.Join(s.dir, id+".yml")
}
