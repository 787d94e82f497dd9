package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// State is a Store kept in a single JSON file, an object of string values
// like browser local storage. Every Set or Delete rewrites the file.
// With an empty path it is purely in memory.
type State struct {
	mu        sync.RWMutex
	data      map[string]string
	filePath  string
	lastSaved []byte
}

// NewMemoryState creates a State that is never written to disk.
func NewMemoryState() *State {
	return &State{data: make(map[string]string)}
}

// OpenState creates a State backed by filePath and loads it if it exists.
func OpenState(filePath string) (*State, error) {
	s := &State{
		filePath: filePath,
		data:     make(map[string]string),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file, or "" for an in-memory state.
func (s *State) Path() string {
	return s.filePath
}

// Load reads the state file from disk, replacing the in-memory contents.
func (s *State) Load() error {
	_, err := s.Reload()
	return err
}

// Reload reads the state file and reports whether its contents differ from
// what this process last wrote. It is called when the file changes underneath us.
func (s *State) Reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filePath == "" {
		return false, nil
	}

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// Initialize new state
			s.data = make(map[string]string)
			return false, nil
		}
		return false, fmt.Errorf("failed to read state file: %w", err)
	}

	if s.lastSaved != nil && bytes.Equal(raw, s.lastSaved) {
		return false, nil
	}

	data := make(map[string]string)
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return false, fmt.Errorf("failed to parse state file: %w", err)
		}
	}

	s.data = data
	s.lastSaved = raw
	return true, nil
}

// save writes the state to disk atomically. Caller holds the write lock.
func (s *State) save() error {
	if s.filePath == "" {
		return nil
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Write atomically
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, raw, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	s.lastSaved = raw
	return nil
}

// Get returns the value stored at key.
func (s *State) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

// Set stores value at key and persists the state.
func (s *State) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.data[key]
	s.data[key] = string(value)
	if err := s.save(); err != nil {
		if existed {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// Delete removes key and persists the state. Deleting a missing key is not an error.
func (s *State) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.data[key]
	if !existed {
		return nil
	}
	delete(s.data, key)
	if err := s.save(); err != nil {
		s.data[key] = prev
		return err
	}
	return nil
}

// Keys returns all keys in sorted order.
func (s *State) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
