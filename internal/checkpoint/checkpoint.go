// Package checkpoint persists per-turn run snapshots.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vinayprograms/agentmaker/internal/plan"
)

// DirName is the checkpoint directory inside a run directory.
const DirName = "checkpoints"

// Checkpoint is the state of a run after one completed turn.
type Checkpoint struct {
	RunID     string      `json:"run_id"`
	Step      int         `json:"step"`
	Status    string      `json:"status"`
	Action    string      `json:"action"`               // action kind of the turn
	Tool      string      `json:"tool,omitempty"`       // tool called this turn
	ToolError string      `json:"tool_error,omitempty"` // error code of the tool result
	Plan      []plan.Item `json:"plan"`
	Timestamp time.Time   `json:"timestamp"`
}

// Store manages checkpoints for a run.
type Store struct {
	dir         string
	checkpoints map[int]*Checkpoint
	mu          sync.RWMutex
}

// NewStore creates a new checkpoint store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Store{
		dir:         dir,
		checkpoints: make(map[int]*Checkpoint),
	}, nil
}

// Dir returns the checkpoint directory of a run.
func Dir(runsDir, runID string) string {
	return filepath.Join(runsDir, runID, DirName)
}

// Save records a checkpoint and writes it to disk. A later save for the
// same step replaces the earlier one.
func (s *Store) Save(cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now().UTC()
	}
	s.checkpoints[cp.Step] = cp
	return s.flush(cp.Step)
}

// Get retrieves a checkpoint by step.
func (s *Store) Get(step int) *Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoints[step]
}

// Latest returns the checkpoint with the highest step, or nil.
func (s *Store) Latest() *Checkpoint {
	trail := s.Trail()
	if len(trail) == 0 {
		return nil
	}
	return trail[len(trail)-1]
}

// Trail returns all checkpoints ordered by step.
func (s *Store) Trail() []*Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trail := make([]*Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		trail = append(trail, cp)
	}
	sort.Slice(trail, func(i, j int) bool { return trail[i].Step < trail[j].Step })
	return trail
}

// flush writes a checkpoint to disk.
func (s *Store) flush(step int) error {
	cp := s.checkpoints[step]
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, fileName(step))
	return os.WriteFile(path, data, 0644)
}

func fileName(step int) string {
	return fmt.Sprintf("step-%04d.json", step)
}

// Load loads checkpoints from disk. Unreadable files are skipped.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "step-") || filepath.Ext(name) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}

		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			continue
		}
		s.checkpoints[cp.Step] = &cp
	}

	return nil
}
