// Package dedup persists the bounded list of recently posted notice ids.
// The on-disk format is a plain JSON array of id strings, newest last,
// at most Cap entries. The file is rewritten after every Record so a crash
// between notices never loses the record of an already-posted notice.
package dedup

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrPersist marks a failed write of the store file. Callers must treat it
// as fatal for the run: continuing without a durable dedup record causes
// duplicate posts on the next run.
var ErrPersist = errors.New("dedup store persist failed")

type Store struct {
	path   string
	cap    int
	ids    []string
	logger *slog.Logger
}

// Load reads the store from path. A missing file, unreadable file, or a
// file that is not a JSON string array yields an empty store, never an
// error: losing history only risks a duplicate post, which the cap already
// tolerates, while refusing to start helps nobody.
func Load(path string, capacity int, logger *slog.Logger) *Store {
	s := &Store{path: path, cap: capacity, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("dedup store unreadable, starting empty", "path", path, "error", err.Error())
		}
		return s
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		logger.Warn("dedup store corrupt, starting empty", "path", path, "error", err.Error())
		return s
	}

	if len(ids) > capacity {
		ids = ids[len(ids)-capacity:]
	}
	s.ids = ids
	return s
}

// Contains reports whether an id is in the store.
func (s *Store) Contains(id string) bool {
	for _, known := range s.ids {
		if known == id {
			return true
		}
	}
	return false
}

// Record appends an id as the most recent entry and persists the store.
// A repeat id is moved to the end rather than duplicated, so the store
// holds at most one entry per id and eviction only drops distinct older
// ids. The write happens before Record returns; any failure wraps
// ErrPersist.
func (s *Store) Record(id string) error {
	kept := s.ids[:0]
	for _, known := range s.ids {
		if known != id {
			kept = append(kept, known)
		}
	}
	s.ids = append(kept, id)

	if len(s.ids) > s.cap {
		s.ids = s.ids[len(s.ids)-s.cap:]
	}

	return s.persist()
}

// IDs returns a copy of the stored ids, oldest first.
func (s *Store) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Store) Len() int {
	return len(s.ids)
}

func (s *Store) persist() error {
	data, err := json.Marshal(s.ids)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	// Write-then-rename so a crash mid-write leaves the previous file intact.
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.logger.Debug("dedup store persisted", "path", s.path, "entries", len(s.ids))
	return nil
}
