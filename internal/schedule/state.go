package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fedehofmann/medallion/internal/datekey"
)

// state is the on-disk scheduler watermark.
type state struct {
	LastCompleted string `json:"last_completed"`
}

// StateStore persists the last completed run date so restarts do not
// re-run finished dates.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a store backed by the given file path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// LastCompleted returns the most recent completed run date. ok is false
// when no run has completed yet.
func (s *StateStore) LastCompleted() (key datekey.Key, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return datekey.Key{}, false, nil
		}
		return datekey.Key{}, false, fmt.Errorf("reading scheduler state: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return datekey.Key{}, false, fmt.Errorf("parsing scheduler state: %w", err)
	}
	if st.LastCompleted == "" {
		return datekey.Key{}, false, nil
	}
	key, err = datekey.Parse(st.LastCompleted)
	if err != nil {
		return datekey.Key{}, false, fmt.Errorf("scheduler state: %w", err)
	}
	return key, true, nil
}

// SetLastCompleted advances the watermark to key.
func (s *StateStore) SetLastCompleted(key datekey.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.Marshal(state{LastCompleted: key.String()})
	if err != nil {
		return fmt.Errorf("marshalling scheduler state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing scheduler state: %w", err)
	}
	return nil
}
