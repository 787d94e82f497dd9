package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/madhatter5501/StudyHub/streak"
)

var (
	// ErrNotFound is returned when an item id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for missing or malformed user input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTimerRunning is returned when starting a timer that is already running.
	ErrTimerRunning = errors.New("timer already running")
	// ErrTimerIdle is returned when ending a timer that is not running.
	ErrTimerIdle = errors.New("timer not running")
	// ErrNoPaper is returned when starting a mock exam before a paper is loaded.
	ErrNoPaper = errors.New("no mock paper loaded")
)

// Store is the key-value persistence port. Values are opaque bytes; most
// services keep JSON in them, the sticky note and theme flag keep plain text.
// Both the JSON file State and the SQLite store implement it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Activity is one qualifying action that counted towards the streak.
type Activity struct {
	ID     int64      `json:"id"`
	Day    streak.Day `json:"day"`
	Source string     `json:"source"`
	At     time.Time  `json:"at"`
}

// ActivityLog is implemented by stores that keep a completion history.
type ActivityLog interface {
	AppendActivity(ctx context.Context, a Activity) error
	RecentActivity(ctx context.Context, limit int) ([]Activity, error)
	DaysActive(ctx context.Context) (int, error)
}

// Completer records a qualifying action for the streak.
type Completer interface {
	Complete(ctx context.Context, source string, now time.Time) error
}

// Completion sources.
const (
	SourceTodo          = "todo"
	SourceStopwatch     = "stopwatch"
	SourceCountdown     = "countdown"
	SourceCountdownDone = "countdown-finished"
	SourceMockFinished  = "mock-finished"
	SourceMockEnded     = "mock-ended"
	SourceManual        = "manual"
)

// UnreadableSuffix is appended to a key whose value could not be decoded
// when that value is moved aside.
const UnreadableSuffix = ".unreadable"

// loadJSON decodes the value at key. A missing key yields the zero T and
// false. A value that does not decode is moved to key+UnreadableSuffix and
// then treated as missing, so the next write starts fresh without losing it.
func loadJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var v T
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return v, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		if err := moveAside(ctx, s, key, raw); err != nil {
			return zero, false, err
		}
		return zero, false, nil
	}
	return v, true, nil
}

// moveAside copies raw to the first free backup key for key and deletes key.
func moveAside(ctx context.Context, s Store, key string, raw []byte) error {
	backup := key + UnreadableSuffix
	for n := 2; ; n++ {
		_, taken, err := s.Get(ctx, backup)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", backup, err)
		}
		if !taken {
			break
		}
		backup = fmt.Sprintf("%s%s.%d", key, UnreadableSuffix, n)
	}
	if err := s.Set(ctx, backup, raw); err != nil {
		return fmt.Errorf("failed to move unreadable %s to %s: %w", key, backup, err)
	}
	if err := s.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to remove unreadable %s: %w", key, err)
	}
	return nil
}

// loadList loads a JSON array of items addressed by id. Entries stored
// without an id get a new one and the list is written back, so the ids
// handed out stay valid for later calls.
func loadList[T any](ctx context.Context, s Store, key string, id func(*T) *string) ([]T, error) {
	items, _, err := loadJSON[[]T](ctx, s, key)
	if err != nil {
		return nil, err
	}
	assigned := false
	for i := range items {
		if p := id(&items[i]); *p == "" {
			*p = uuid.New().String()
			assigned = true
		}
	}
	if assigned {
		if err := saveJSON(ctx, s, key, items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func saveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
