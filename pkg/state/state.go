package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	errs "github.com/compmonks/instArchiver/pkg/errors"
	"github.com/compmonks/instArchiver/pkg/logger"
)

// State is what one archiving run leaves behind for the next run:
// the resume marker plus the set of every item id ever processed.
type State struct {
	LastSavedMediaID string
	LastRunISO       string

	processed map[string]struct{}
}

// stateFile is the on-disk shape. Processed ids are stored as a sorted
// list so consecutive saves of the same state produce identical files.
type stateFile struct {
	LastSavedMediaID string   `json:"last_saved_media_id"`
	LastRunISO       string   `json:"last_run_iso,omitempty"`
	ProcessedIDs     []string `json:"processed_ids"`
}

// NewState returns an empty state for a first run.
func NewState() *State {
	return &State{processed: make(map[string]struct{})}
}

// MarkProcessed records that an item has been handled this run or a
// previous one.
func (s *State) MarkProcessed(id string) {
	if s.processed == nil {
		s.processed = make(map[string]struct{})
	}
	s.processed[id] = struct{}{}
}

// IsProcessed reports whether an item id has been seen before.
func (s *State) IsProcessed(id string) bool {
	_, ok := s.processed[id]
	return ok
}

// ProcessedCount returns the number of distinct processed ids.
func (s *State) ProcessedCount() int {
	return len(s.processed)
}

// ProcessedIDs returns a sorted copy of the processed id set.
func (s *State) ProcessedIDs() []string {
	ids := make([]string, 0, len(s.processed))
	for id := range s.processed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON writes the on-disk shape.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateFile{
		LastSavedMediaID: s.LastSavedMediaID,
		LastRunISO:       s.LastRunISO,
		ProcessedIDs:     s.ProcessedIDs(),
	})
}

// UnmarshalJSON reads the on-disk shape. Duplicate ids in the list
// collapse into the set.
func (s *State) UnmarshalJSON(data []byte) error {
	var file stateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}

	s.LastSavedMediaID = file.LastSavedMediaID
	s.LastRunISO = file.LastRunISO
	s.processed = make(map[string]struct{}, len(file.ProcessedIDs))
	for _, id := range file.ProcessedIDs {
		s.processed[id] = struct{}{}
	}
	return nil
}

// Store reads and writes the state file.
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a store for the state file at the given path.
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{path: path, logger: log}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Exists checks if a state file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the state file. A missing file is not an error: the run
// simply starts from nothing. A file that exists but cannot be parsed
// is an error, because silently starting fresh would re-archive
// everything.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.DebugWithFields("no previous state, starting fresh", map[string]interface{}{
				"path": s.path,
			})
			return NewState(), nil
		}
		return nil, &errs.Error{
			Type:    errs.ErrorTypeState,
			Message: fmt.Sprintf("cannot read state file %s: %v", s.path, err),
		}
	}

	st := NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeState,
			Message: fmt.Sprintf("state file %s is corrupt: %v", s.path, err),
		}
	}

	s.logger.InfoWithFields("state loaded", map[string]interface{}{
		"path":                s.path,
		"last_saved_media_id": st.LastSavedMediaID,
		"processed_ids":       st.ProcessedCount(),
		"last_run":            st.LastRunISO,
	})

	return st, nil
}

// Save writes the state atomically by renaming a synced temp file
// into place. The last-run timestamp is stamped here so it always
// reflects the save, not the load.
func (s *Store) Save(st *State) error {
	st.LastRunISO = time.Now().UTC().Format(time.RFC3339)

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(st); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	s.logger.DebugWithFields("state saved", map[string]interface{}{
		"path":                s.path,
		"last_saved_media_id": st.LastSavedMediaID,
		"processed_ids":       st.ProcessedCount(),
	})

	return nil
}

// Delete removes the state file.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}

	s.logger.Info("state file deleted")
	return nil
}
