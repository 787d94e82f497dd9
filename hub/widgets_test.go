package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscussionNewestFirst(t *testing.T) {
	board := NewDiscussion(NewMemoryState())
	ctx := t.Context()

	_, err := board.Post(ctx, "sam", "   ", t0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	first, err := board.Post(ctx, "", "Anyone have the 2022 paper?", t0)
	require.NoError(t, err)
	assert.Equal(t, AnonymousUser, first.Username)

	_, err = board.Post(ctx, " sam ", "Check the library tab", t0.Add(time.Minute))
	require.NoError(t, err)

	posts, err := board.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "sam", posts[0].Username)
	assert.Equal(t, first.ID, posts[1].ID)
}

func TestStickyNote(t *testing.T) {
	sticky := NewSticky(NewMemoryState())
	ctx := t.Context()

	text, err := sticky.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", text)

	require.NoError(t, sticky.Set(ctx, "formula sheet\nE = mc^2"))
	name, body, err := sticky.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, StickyExportName, name)
	assert.Equal(t, "formula sheet\nE = mc^2", string(body))

	require.NoError(t, sticky.Clear(ctx))
	text, err = sticky.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", text)

	assert.ErrorIs(t, NewSticky(failingStore{}).Set(ctx, "x"), errDisk)
}

func TestDarkModeSetting(t *testing.T) {
	store := NewMemoryState()
	settings := NewSettings(store)
	ctx := t.Context()

	on, err := settings.DarkMode(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, settings.SetDarkMode(ctx, true))
	raw, _, err := store.Get(ctx, KeyDarkMode)
	require.NoError(t, err)
	assert.Equal(t, "true", string(raw))

	on, err = settings.DarkMode(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, store.Set(ctx, KeyDarkMode, []byte("maybe")))
	on, err = settings.DarkMode(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestPlaylistWrapsAround(t *testing.T) {
	p := NewPlaylist(nil)
	assert.Equal(t, DefaultTracks, p.Tracks())

	i, name := p.Current()
	assert.Equal(t, 0, i)
	assert.Equal(t, "Track: music1.mp3", Label(name))

	i, _ = p.Prev()
	assert.Equal(t, 2, i)
	i, _ = p.Next()
	assert.Equal(t, 0, i)
	p.Next()
	i, name = p.Next()
	assert.Equal(t, 2, i)
	assert.Equal(t, "music3.mp3", name)
	i, _ = p.Next()
	assert.Equal(t, 0, i)

	name, err := p.Select(1)
	require.NoError(t, err)
	assert.Equal(t, "music2.mp3", name)
	_, err = p.Select(3)
	assert.ErrorIs(t, err, ErrNotFound)
}
