package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/madhatter5501/StudyHub/hub"
	"github.com/madhatter5501/StudyHub/streak"
)

// Store implements hub.Store and hub.ActivityLog using SQLite.
type Store struct {
	db *DB
}

var (
	_ hub.Store       = (*Store)(nil)
	_ hub.ActivityLog = (*Store)(nil)
)

// NewStore creates a new SQLite-backed store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// --- Key-value ---

// Get retrieves the value stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value at key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys lists all keys in sorted order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// --- Activity ---

// AppendActivity records one completion.
func (s *Store) AppendActivity(ctx context.Context, a hub.Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity (day, source, at) VALUES (?, ?, ?)
	`, a.Day.String(), a.Source, a.At.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// RecentActivity returns up to limit completions, newest first.
func (s *Store) RecentActivity(ctx context.Context, limit int) ([]hub.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, day, source, at FROM activity ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var out []hub.Activity
	for rows.Next() {
		var (
			a       hub.Activity
			day, at string
		)
		if err := rows.Scan(&a.ID, &day, &a.Source, &at); err != nil {
			return nil, err
		}
		if a.Day, err = streak.ParseDay(day); err != nil {
			return nil, fmt.Errorf("activity %d: %w", a.ID, err)
		}
		if a.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("activity %d: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DaysActive counts the distinct days with at least one completion.
func (s *Store) DaysActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT day) FROM activity").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active days: %w", err)
	}
	return n, nil
}

// --- Import ---

// Import copies every key of src into the store, overwriting existing values.
// It returns the number of keys copied.
func (s *Store) Import(ctx context.Context, src hub.Store) (int, error) {
	keys, err := src.Keys(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	copied := 0
	for _, k := range keys {
		v, ok, err := src.Get(ctx, k)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
		`, k, v); err != nil {
			return 0, fmt.Errorf("failed to import %s: %w", k, err)
		}
		copied++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return copied, nil
}
