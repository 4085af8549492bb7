package update

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arugifa/websync/internal/config"
)

// SyncState records where the last successful synchronization stopped,
// so the next run only has to replay the commits after it.
type SyncState struct {
	RepositoryPath string     `json:"repository_path"`
	LastCommit     string     `json:"last_commit,omitempty"`
	LastRun        *time.Time `json:"last_run,omitempty"`
}

// StateTracker manages the per-repository sync state file.
type StateTracker struct {
	state    *SyncState
	filePath string
	mu       sync.Mutex
	dirty    bool
}

// NewStateTracker loads (or initializes) the state for one repository.
func NewStateTracker(repositoryPath string) (*StateTracker, error) {
	stateDir, err := config.GetStateDir()
	if err != nil {
		return nil, err
	}

	// One state file per repository path.
	sum := sha256.Sum256([]byte(repositoryPath))
	filePath := filepath.Join(stateDir, "state-"+hex.EncodeToString(sum[:6])+".json")

	st := &StateTracker{
		filePath: filePath,
		state:    &SyncState{RepositoryPath: repositoryPath},
	}

	if err := st.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	// Discard state belonging to another repository (hash collision or
	// a moved directory).
	if st.state.RepositoryPath != repositoryPath {
		st.state = &SyncState{RepositoryPath: repositoryPath}
	}

	return st, nil
}

// LastCommit returns the commit the store was last synchronized to, or
// "" when no run succeeded yet.
func (st *StateTracker) LastCommit() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.LastCommit
}

// SetLastCommit records a successful run up to the given commit.
func (st *StateTracker) SetLastCommit(commit string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	st.state.LastCommit = commit
	st.state.LastRun = &now
	st.dirty = true
}

// Save persists the state to disk if it changed.
func (st *StateTracker) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.dirty {
		return nil
	}

	data, err := json.MarshalIndent(st.state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(st.filePath, data, 0644); err != nil {
		return err
	}

	st.dirty = false
	return nil
}

func (st *StateTracker) load() error {
	data, err := os.ReadFile(st.filePath)
	if err != nil {
		return err
	}

	state := &SyncState{}
	if err := json.Unmarshal(data, state); err != nil {
		return err
	}

	st.state = state
	return nil
}
