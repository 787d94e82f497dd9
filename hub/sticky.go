package hub

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// StickyExportName is the file name offered when the sticky note is downloaded.
const StickyExportName = "sticky-note.txt"

// Sticky is the free-text sticky note. It is stored as plain text.
type Sticky struct {
	mu    sync.Mutex
	store Store
}

// NewSticky creates the sticky note service.
func NewSticky(store Store) *Sticky {
	return &Sticky{store: store}
}

// Get returns the note text.
func (s *Sticky) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, _, err := s.store.Get(ctx, KeySticky)
	if err != nil {
		return "", fmt.Errorf("failed to read sticky note: %w", err)
	}
	return string(raw), nil
}

// Set replaces the note text.
func (s *Sticky) Set(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, KeySticky, []byte(text)); err != nil {
		return fmt.Errorf("failed to write sticky note: %w", err)
	}
	return nil
}

// Clear empties the note.
func (s *Sticky) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, KeySticky); err != nil {
		return fmt.Errorf("failed to clear sticky note: %w", err)
	}
	return nil
}

// Export returns the note as a downloadable text file.
func (s *Sticky) Export(ctx context.Context) (name string, body []byte, err error) {
	text, err := s.Get(ctx)
	if err != nil {
		return "", nil, err
	}
	return StickyExportName, []byte(text), nil
}

// Settings holds dashboard preferences.
type Settings struct {
	store Store
}

// NewSettings creates the settings service.
func NewSettings(store Store) *Settings {
	return &Settings{store: store}
}

// DarkMode reports whether the dark theme is on. It is stored as "true"/"false".
func (s *Settings) DarkMode(ctx context.Context) (bool, error) {
	raw, ok, err := s.store.Get(ctx, KeyDarkMode)
	if err != nil {
		return false, fmt.Errorf("failed to read settings: %w", err)
	}
	if !ok {
		return false, nil
	}
	on, err := strconv.ParseBool(string(raw))
	if err != nil {
		return false, nil
	}
	return on, nil
}

// SetDarkMode turns the dark theme on or off.
func (s *Settings) SetDarkMode(ctx context.Context, on bool) error {
	if err := s.store.Set(ctx, KeyDarkMode, []byte(strconv.FormatBool(on))); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
