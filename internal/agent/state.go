package agent

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// StateManager durably persists in-flight workflow progress, one JSON file
// per workflow id, written atomically so readers never observe a partial
// state. A directory-level file lock serializes mutations across processes.
type StateManager struct {
	dir  string
	lock *flock.Flock
}

// NewStateManager creates the state directory if needed.
func NewStateManager(dir string) (*StateManager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &StateManager{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

func (sm *StateManager) statePath(workflowID string) string {
	return filepath.Join(sm.dir, workflowID+".json")
}

// Save refreshes UpdatedAt and writes the state atomically: serialize to a
// temp file in the same directory, fsync, then rename over the target.
// Persistence failures propagate; durability is a strict contract.
func (sm *StateManager) Save(state *WorkflowState) error {
	if state.WorkflowID == "" {
		return fmt.Errorf("workflow state has no id")
	}
	state.UpdatedAt = time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = state.UpdatedAt
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state %s: %w", state.WorkflowID, err)
	}

	if err := sm.lock.Lock(); err != nil {
		return fmt.Errorf("lock state dir: %w", err)
	}
	defer sm.lock.Unlock()

	tmp, err := os.CreateTemp(sm.dir, ".state-tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, sm.statePath(state.WorkflowID)); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// Load reads a state by id. Missing or malformed files are a normal
// outcome: both return (nil, nil) after logging, never an error the caller
// must branch on.
func (sm *StateManager) Load(workflowID string) (*WorkflowState, error) {
	data, err := os.ReadFile(sm.statePath(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		log.Printf("[state] read %s: %v", workflowID, err)
		return nil, nil
	}

	var state WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("[state] corrupt state file for %s: %v", workflowID, err)
		return nil, nil
	}
	if state.WorkflowID == "" || state.Status == "" || state.CreatedAt.IsZero() ||
		state.Workflow == nil || state.StepResults == nil {
		log.Printf("[state] state file for %s is missing required fields", workflowID)
		return nil, nil
	}
	return &state, nil
}

// Delete removes a state file. A missing file reports false, not an error.
func (sm *StateManager) Delete(workflowID string) bool {
	if err := sm.lock.Lock(); err != nil {
		log.Printf("[state] lock for delete %s: %v", workflowID, err)
		return false
	}
	defer sm.lock.Unlock()

	if err := os.Remove(sm.statePath(workflowID)); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[state] delete %s: %v", workflowID, err)
		}
		return false
	}
	return true
}

// ListWorkflows returns every persisted workflow id.
func (sm *StateManager) ListWorkflows() ([]string, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		return nil, fmt.Errorf("read state dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// CleanupOlderThan deletes terminal (completed/failed) states whose
// UpdatedAt is older than the retention window. Running and paused states
// are never auto-deleted regardless of age. Returns the number deleted.
func (sm *StateManager) CleanupOlderThan(days int) (int, error) {
	ids, err := sm.ListWorkflows()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	deleted := 0
	for _, id := range ids {
		state, _ := sm.Load(id)
		if state == nil {
			continue
		}
		if state.Status.IsTerminal() && state.UpdatedAt.Before(cutoff) {
			if sm.Delete(id) {
				deleted++
			}
		}
	}
	return deleted, nil
}

// CanResume reports whether a paused state exists for the id.
func (sm *StateManager) CanResume(workflowID string) bool {
	state, _ := sm.Load(workflowID)
	return state != nil && state.Status == StatusPaused
}
