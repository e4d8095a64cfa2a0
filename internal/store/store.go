// Package store implements the engine's persistent, serialized
// collection of download Records: a single JSON array on disk, kept in
// sync with an in-memory map behind one mutex.
package store

import (
	"encoding/json"
	"os"
	"sync"

	"downforge/internal/logger"
	"downforge/internal/record"
)

// Store is the ordered mapping path -> Record described in spec §3 and
// §4.2. All operations are serialized against each other: every method
// takes the same mutex, so the Store forms a linearizable sequence of
// reads and writes, as the teacher's DownloadRepository does for its
// SQLite table.
type Store struct {
	mu   sync.Mutex
	path string
	recs map[string]record.Record
	// order preserves insertion order for List, matching the "ordered
	// mapping" language in spec §3.
	order []string
}

// Open loads the Store from path. A missing or corrupt file yields an
// empty Store rather than an error, per spec §4.2.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		recs: make(map[string]record.Record),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		logger.Log.Warn().Err(err).Str("path", path).Msg("store: failed to read file, starting empty")
		return s, nil
	}

	var recs []record.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		logger.Log.Warn().Err(err).Str("path", path).Msg("store: corrupt file, starting empty")
		return s, nil
	}

	for _, r := range recs {
		s.recs[r.Path] = r
		s.order = append(s.order, r.Path)
	}
	return s, nil
}

// List returns a snapshot of all Records, in insertion order.
func (s *Store) List() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.Record, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, s.recs[p])
	}
	return out
}

// FindByPath returns the Record at path, if any.
func (s *Store) FindByPath(path string) (record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[path]
	return r, ok
}

// FindByURL returns the first Record whose URL matches, if any.
// Exposed for completeness (spec §9: "unused by the Engine... treat as
// a convenience, no invariant depends on URL uniqueness").
func (s *Store) FindByURL(url string) (record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.order {
		if r := s.recs[p]; r.URL == url {
			return r, true
		}
	}
	return record.Record{}, false
}

// Append inserts a new Record and persists the Store.
func (s *Store) Append(r record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recs[r.Path]; !exists {
		s.order = append(s.order, r.Path)
	}
	s.recs[r.Path] = r
	return s.saveLocked()
}

// Update replaces the Record at r.Path. When persist is false the
// change is applied in memory only, the escape hatch spec §4.2 reserves
// for high-frequency progress updates.
func (s *Store) Update(r record.Record, persist bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recs[r.Path]; !exists {
		s.order = append(s.order, r.Path)
	}
	s.recs[r.Path] = r
	if !persist {
		return nil
	}
	return s.saveLocked()
}

// Remove deletes the Record at path and persists the Store.
func (s *Store) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[path]; !ok {
		return nil
	}
	delete(s.recs, path)
	for i, p := range s.order {
		if p == path {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return s.saveLocked()
}

// saveLocked re-encodes the full Record array and writes it atomically.
// Per spec §4.2's failure model, save errors are logged and swallowed:
// the in-memory state remains authoritative and the next successful
// save resynchronizes disk with memory.
func (s *Store) saveLocked() error {
	out := make([]record.Record, 0, len(s.order))
	for _, p := range s.order {
		if r := s.recs[p]; r.Persistable() {
			out = append(out, r)
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		logger.Log.Error().Err(err).Msg("store: failed to marshal records")
		return nil
	}

	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		logger.Log.Error().Err(err).Str("path", s.path).Msg("store: failed to save, keeping in-memory state")
		return nil
	}
	return nil
}
