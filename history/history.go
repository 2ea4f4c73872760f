// Package history keeps a small, capped log of recent translations in a JSON
// file so the CLI and server can show what was converted recently.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Neumenon/hachimi/api"
	"github.com/Neumenon/hachimi/hachimi"
)

// DefaultLimit is the number of entries kept when Open is given no limit.
const DefaultLimit = 60

// Store is a most-recent-first list of translations. A Store with an empty
// path lives only in memory.
type Store struct {
	mu      sync.Mutex
	path    string
	limit   int
	entries []api.HistoryEntry

	now func() time.Time
}

type file struct {
	Entries []api.HistoryEntry `json:"entries"`
}

// Open loads the history file at path. A missing file starts an empty
// history; a corrupt one is logged and replaced on the next write.
func Open(path string, limit int) (*Store, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	s := &Store{path: path, limit: limit, now: time.Now}
	if path == "" {
		return s, nil
	}

	bts, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read history: %w", err)
	}

	var f file
	if err := json.Unmarshal(bts, &f); err != nil {
		slog.Warn("history file is corrupt, starting fresh", "path", path, "error", err)
		return s, nil
	}

	s.entries = f.Entries
	if len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}
	return s, nil
}

// Add records one translation and returns the stored entry.
func (s *Store) Add(role hachimi.Role, original string, result hachimi.Result) (api.HistoryEntry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return api.HistoryEntry{}, err
	}

	entry := api.HistoryEntry{
		ID:         id.String(),
		Role:       role,
		Original:   original,
		Translated: result.Output,
		OK:         result.OK,
		Stats:      result.Stats,
		CreatedAt:  s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]api.HistoryEntry, 0, min(len(s.entries)+1, s.limit))
	entries = append(entries, entry)
	entries = append(entries, s.entries[:min(len(s.entries), s.limit-1)]...)
	if err := s.save(entries); err != nil {
		return api.HistoryEntry{}, err
	}
	s.entries = entries
	return entry, nil
}

// List returns a copy of the entries, newest first.
func (s *Store) List() []api.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops every entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(nil); err != nil {
		return err
	}
	s.entries = nil
	return nil
}

func (s *Store) Path() string {
	return s.path
}

// save writes entries to the file atomically. Callers hold s.mu and only
// adopt entries once save succeeds.
func (s *Store) save(entries []api.HistoryEntry) error {
	if s.path == "" {
		return nil
	}

	if entries == nil {
		entries = []api.HistoryEntry{}
	}
	bts, err := json.MarshalIndent(file{Entries: entries}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(bts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
