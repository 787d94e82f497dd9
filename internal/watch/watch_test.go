package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	var calls atomic.Int32
	w, err := New(path, func(context.Context) { calls.Add(1) }, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	defer w.Stop()

	// Unrelated files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"n":"`+string(rune('0'+i))+`"}`), 0644))
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), int32(2), "a burst of writes collapses into few reloads")
}

func TestFileWatcherSeesAtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	fired := make(chan struct{}, 1)
	w, err := New(path, func(context.Context) {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	defer w.Stop()

	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("{}"), 0644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("rename into place was not noticed")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "x.json"), func(context.Context) {})
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Start(t.Context()))
	require.Error(t, w.Start(t.Context()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
