// Package statestore persists the seen-URL set between runs as a small,
// diff-friendly JSON document.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sipwatcher/internal/domain"
	"sipwatcher/internal/ports"
)

// document is the wire shape: sorted URLs for stable diffs, RFC3339 timestamp.
type document struct {
	SeenURLs    []string `json:"seen_urls"`
	LastChecked string   `json:"last_checked"`
}

// FileStore reads and writes the state document at a fixed path.
type FileStore struct {
	path   string
	logger *slog.Logger
}

var _ ports.StateStore = (*FileStore)(nil)

// New builds a store for the given file path.
func New(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the persisted state. A missing file means a first-ever run and
// yields an empty state. A corrupt file also yields an empty state but is
// logged loudly, since it risks re-notifying already seen articles.
func (f *FileStore) Load(_ context.Context) (*domain.SeenState, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NewSeenState(), nil
		}
		f.error("state file unreadable, starting from empty state", "path", f.path, "error", err)
		return domain.NewSeenState(), nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		f.error("state file corrupt, starting from empty state", "path", f.path, "error", err)
		return domain.NewSeenState(), nil
	}

	state := domain.NewSeenState()
	for _, u := range doc.SeenURLs {
		state.Mark(u)
	}
	if doc.LastChecked != "" {
		if ts, err := time.Parse(time.RFC3339, doc.LastChecked); err == nil {
			state.LastChecked = ts
		}
	}

	return state, nil
}

// Save writes the state atomically (temp file + rename) so a killed run
// never leaves a truncated document behind.
func (f *FileStore) Save(_ context.Context, state *domain.SeenState) error {
	doc := document{
		SeenURLs:    state.SortedURLs(),
		LastChecked: state.LastChecked.UTC().Format(time.RFC3339),
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

func (f *FileStore) error(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Error(msg, args...)
	}
}
