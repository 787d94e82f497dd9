package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhatter5501/StudyHub/streak"
)

func TestParseClock(t *testing.T) {
	got, err := ParseClock(" 07:05 ")
	require.NoError(t, err)
	assert.Equal(t, "07:05", got)

	for _, bad := range []string{"", "25:00", "7pm", "12:60"} {
		_, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestRemindersFireOncePerUnstudiedDay(t *testing.T) {
	store := NewMemoryState()
	log := NewStudyLog(store)
	reminders := NewReminders(store, log)
	ctx := t.Context()

	at := time.Date(2024, time.January, 15, 19, 0, 0, 0, time.UTC)

	rs, err := reminders.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, rs.Enabled)
	assert.Equal(t, DefaultReminderTime, rs.Time)

	due, err := reminders.ShouldRemind(ctx, at)
	require.NoError(t, err)
	assert.False(t, due, "disabled")

	_, err = reminders.Configure(ctx, true, "bogus")
	assert.ErrorIs(t, err, ErrInvalidInput)
	rs, err = reminders.Configure(ctx, true, "")
	require.NoError(t, err)
	assert.Equal(t, "19:00", rs.Time)

	due, err = reminders.ShouldRemind(ctx, at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, due, "wrong minute")

	due, err = reminders.ShouldRemind(ctx, at.Add(59*time.Second))
	require.NoError(t, err)
	assert.True(t, due)

	require.NoError(t, reminders.MarkSent(ctx, streak.DayOf(at)))
	due, err = reminders.ShouldRemind(ctx, at)
	require.NoError(t, err)
	assert.False(t, due, "already sent today")

	next := at.AddDate(0, 0, 1)
	due, err = reminders.ShouldRemind(ctx, next)
	require.NoError(t, err)
	assert.True(t, due)

	require.NoError(t, log.MarkStudied(ctx, streak.DayOf(next)))
	due, err = reminders.ShouldRemind(ctx, next)
	require.NoError(t, err)
	assert.False(t, due, "studied today")

	last, err := log.LastStudied(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-16", last.String())
}
