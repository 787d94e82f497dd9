package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhatter5501/StudyHub/hub"
	"github.com/madhatter5501/StudyHub/streak"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "data", "studyhub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return NewStore(d)
}

func TestKeyValueRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	_, ok, err := s.Get(ctx, hub.KeyStreak)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, hub.KeyStreak, []byte(`{"count":1,"lastCompletedDate":"2024-01-01"}`)))
	require.NoError(t, s.Set(ctx, hub.KeyStreak, []byte(`{"count":2,"lastCompletedDate":"2024-01-02"}`)))
	require.NoError(t, s.Set(ctx, hub.KeyDarkMode, []byte("true")))

	raw, ok, err := s.Get(ctx, hub.KeyStreak)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"count":2,"lastCompletedDate":"2024-01-02"}`, string(raw))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{hub.KeyDarkMode, hub.KeyStreak}, keys)

	require.NoError(t, s.Delete(ctx, hub.KeyDarkMode))
	require.NoError(t, s.Delete(ctx, hub.KeyDarkMode))
	_, ok, err = s.Get(ctx, hub.KeyDarkMode)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackerOverSQLite(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()
	tracker := streak.NewTracker(s)

	_, err := tracker.RecordCompletion(ctx, streak.MustParseDay("2024-01-01"))
	require.NoError(t, err)
	st, err := tracker.RecordCompletion(ctx, streak.MustParseDay("2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)

	st, err = tracker.Reconcile(ctx, streak.MustParseDay("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, streak.State{}, st)
}

func TestActivityLog(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()
	at := time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

	recent, err := s.RecentActivity(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	for i, src := range []string{hub.SourceTodo, hub.SourceStopwatch, hub.SourceMockEnded} {
		when := at.Add(time.Duration(i) * 24 * time.Hour / 2)
		require.NoError(t, s.AppendActivity(ctx, hub.Activity{
			Day:    streak.DayOf(when),
			Source: src,
			At:     when,
		}))
	}

	recent, err = s.RecentActivity(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, hub.SourceMockEnded, recent[0].Source)
	assert.Equal(t, "2024-01-16", recent[0].Day.String())
	assert.True(t, recent[0].At.Equal(at.Add(24*time.Hour)))
	assert.Equal(t, hub.SourceStopwatch, recent[1].Source)

	days, err := s.DaysActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, days)
}

func TestImportFromJSONState(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	src := hub.NewMemoryState()
	require.NoError(t, src.Set(ctx, hub.KeySticky, []byte("hello")))
	require.NoError(t, src.Set(ctx, hub.KeyTodos, []byte(`[]`)))
	require.NoError(t, s.Set(ctx, hub.KeySticky, []byte("old")))

	n, err := s.Import(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	raw, ok, err := s.Get(ctx, hub.KeySticky)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(raw))
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyhub.db")
	d, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewStore(d).Set(t.Context(), "k", []byte("v")))
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, path, d.Path())

	raw, ok, err := NewStore(d).Get(t.Context(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(raw))
}
