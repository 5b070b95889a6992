package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"sparkchat-backend/internal/store"
)

// FileStore implements store.Store as a single JSON object on disk, the
// server-side analog of the browser's localStorage. Every Set rewrites the
// whole file; a mutex serializes access within the process (single-writer
// assumption, no cross-process locking).
type FileStore struct {
	path string
	mu   sync.Mutex
}

// New ensures the parent directory and the file exist and returns the store.
func New(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("touch file: %w", err)
	}
	_ = f.Close()
	return &FileStore{path: path}, nil
}

// Get returns the value stored under key, or store.ErrNotFound.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.loadUnlocked()
	if err != nil {
		return "", err
	}
	val, ok := data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return val, nil
}

// Set writes value under key and flushes the whole map back to disk.
func (s *FileStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.loadUnlocked()
	if err != nil {
		return err
	}
	data[key] = value
	return s.saveUnlocked(data)
}

// loadUnlocked reads the backing file. An empty or unreadable file yields an
// empty map rather than an error; malformed storage is non-fatal.
func (s *FileStore) loadUnlocked() (map[string]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var data map[string]string
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		if err == io.EOF {
			return map[string]string{}, nil
		}
		// Corrupt file: start fresh instead of wedging the process.
		return map[string]string{}, nil
	}
	if data == nil {
		data = map[string]string{}
	}
	return data, nil
}

// saveUnlocked writes the map atomically via a temp file rename so a crash
// mid-write cannot truncate previously saved state.
func (s *FileStore) saveUnlocked(data map[string]string) error {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open tmp: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
