package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileName returns the report file name for a run date key.
func FileName(dateKey string) string {
	return "dq_results_" + dateKey + ".json"
}

// DiskStore writes quality reports as JSON files into the quality
// directory, one file per run date, overwritten on rerun.
type DiskStore struct {
	Dir string
}

// NewDiskStore creates a store rooted at dir. The directory is created
// on the first Save.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{Dir: dir}
}

// Save writes the report for its date, creating the quality directory
// if needed and replacing any previous report for the same date.
func (s *DiskStore) Save(r *Report) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating quality directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling report %s: %w", r.DateKey, err)
	}
	path := filepath.Join(s.Dir, FileName(r.DateKey))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", r.DateKey, err)
	}
	return nil
}

// Load reads the report for a run date from disk.
func (s *DiskStore) Load(dateKey string) (*Report, error) {
	path := filepath.Join(s.Dir, FileName(dateKey))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", dateKey, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshalling report %s: %w", dateKey, err)
	}
	return &r, nil
}
