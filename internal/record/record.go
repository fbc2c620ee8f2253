// Package record maintains record.json, the list of packages Toolbox has
// installed and when.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"toolbox/internal/logging"
)

// Entry is one installed package.
type Entry struct {
	Version     string `json:"version"`
	InstalledOn string `json:"installed_on"`
}

// InstalledTime parses InstalledOn. The zero time is returned for values
// that are not RFC 3339 (older records used a naive ISO timestamp).
func (e Entry) InstalledTime() time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.ParseInLocation(layout, e.InstalledOn, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Record is the parsed record.json.
type Record map[string]Entry

// Names returns the recorded package names, sorted.
func (r Record) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Store reads and writes record.json.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore creates a Store for the record file at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the record file path.
func (s *Store) Path() string {
	return s.path
}

// Read returns the current record. A missing or unreadable record reads as
// empty.
func (s *Store) Read() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.StoreWarn("Could not read record %s: %v", s.path, err)
		}
		return Record{}
	}
	rec := Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		logging.StoreWarn("Record %s is corrupt, treating as empty: %v", s.path, err)
		return Record{}
	}
	return rec
}

// Put records name as installed at version, stamped with the current time.
func (s *Store) Put(name, version string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{Version: version, InstalledOn: s.now().Format(time.RFC3339)}
	rec := s.read()
	rec[name] = entry
	if err := s.write(rec); err != nil {
		return Entry{}, err
	}
	logging.Store("Recorded %s %s", name, version)
	return entry, nil
}

// Delete removes name from the record. Returns whether it was present.
func (s *Store) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.read()
	if _, ok := rec[name]; !ok {
		return false, nil
	}
	delete(rec, name)
	if err := s.write(rec); err != nil {
		return true, err
	}
	logging.Store("Removed %s from record", name)
	return true, nil
}

// write replaces the record file atomically: encode to a temp file in the
// same directory, sync, then rename over the original.
func (s *Store) write(rec Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("could not encode record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create tmp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write to tmp file %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not sync tmp file %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not close tmp file %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not replace %s with %s: %w", s.path, tmp.Name(), err)
	}
	return nil
}
