// Package file provides a local-file implementation of secrets.Store.
//
// All keys live in a single JSON object written with 0600 permissions.
// Writes go through a temp file + rename so a crash mid-write never
// leaves a truncated store on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/koustreak/connshare/internal/secrets"
)

// Store is a file-backed implementation of secrets.Store.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	mu   sync.Mutex
	path string
}

// New opens (or lazily creates) the secrets file at cfg.Path.
func New(cfg *secrets.Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("secrets file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create secrets directory: %w", err)
	}
	return &Store{path: cfg.Path}, nil
}

// --- secrets.Store implementation ---

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return "", false, err
	}
	val, ok := m[key]
	return val, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	m[key] = value
	return s.save(m)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.save(m)
}

func (s *Store) Close() error { return nil }

// load reads the whole secrets map. A missing file is an empty map.
func (s *Store) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	m := map[string]string{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode secrets file: %w", err)
	}
	return m, nil
}

// save writes the whole map atomically.
func (s *Store) save(m map[string]string) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode secrets: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace secrets file: %w", err)
	}
	return nil
}
