package hub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatePersistsAcrossOpens(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s, err := OpenState(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeySticky, []byte("remember the milk")))
	require.NoError(t, s.Set(ctx, KeyStreak, []byte(`{"count":2,"lastCompletedDate":"2024-01-02"}`)))
	require.NoError(t, s.Delete(ctx, KeySticky))
	require.NoError(t, s.Delete(ctx, "never-set"))

	reopened, err := OpenState(path)
	require.NoError(t, err)
	raw, ok, err := reopened.Get(ctx, KeyStreak)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"count":2,"lastCompletedDate":"2024-01-02"}`, string(raw))

	_, ok, err = reopened.Get(ctx, KeySticky)
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := reopened.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyStreak}, keys)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestStateReloadIgnoresOwnWrites(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := OpenState(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyDarkMode, []byte("true")))

	changed, err := s.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte(`{"darkModeEnabled":"false"}`), 0644))
	changed, err = s.Reload()
	require.NoError(t, err)
	assert.True(t, changed)

	raw, _, err := s.Get(ctx, KeyDarkMode)
	require.NoError(t, err)
	assert.Equal(t, "false", string(raw))
}

func TestStateRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := OpenState(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse state file")
}

func TestMemoryStateNeverTouchesDisk(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryState()
	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	assert.Equal(t, "", s.Path())

	changed, err := s.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	raw, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(raw))
}

func TestLoadJSONMovesUnreadableValueAside(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryState()
	require.NoError(t, s.Set(ctx, KeyTodos, []byte(`{"oops":`)))

	todos, ok, err := loadJSON[[]Todo](ctx, s, KeyTodos)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, todos)

	_, found, err := s.Get(ctx, KeyTodos)
	require.NoError(t, err)
	assert.False(t, found)
	raw, found, err := s.Get(ctx, KeyTodos+UnreadableSuffix)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"oops":`, string(raw))

	// A second bad value does not overwrite the first backup.
	require.NoError(t, s.Set(ctx, KeyTodos, []byte(`[1,`)))
	_, _, err = loadJSON[[]Todo](ctx, s, KeyTodos)
	require.NoError(t, err)
	raw, found, err = s.Get(ctx, KeyTodos+UnreadableSuffix+".2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `[1,`, string(raw))

	// Writing after the move keeps both backups.
	_, err = NewTodos(s, nil).Add(ctx, "Past paper", "2024-01-20", t0)
	require.NoError(t, err)
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, KeyTodos+UnreadableSuffix)
	assert.Contains(t, keys, KeyTodos+UnreadableSuffix+".2")

	_, _, err = loadJSON[[]Todo](ctx, failingStore{}, KeyTodos)
	assert.ErrorIs(t, err, errDisk)
}
