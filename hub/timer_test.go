package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatClock(0))
	assert.Equal(t, "00:01:05", FormatClock(65))
	assert.Equal(t, "02:00:01", FormatClock(7201))
	assert.Equal(t, "00:00:00", FormatClock(-3))
}

func TestStopwatchAccumulates(t *testing.T) {
	completer := &recordingCompleter{}
	timer := NewTimer(NewMemoryState(), completer)
	ctx := t.Context()

	_, err := timer.StartStopwatch(ctx, t0)
	require.NoError(t, err)
	_, err = timer.StartStopwatch(ctx, t0)
	assert.ErrorIs(t, err, ErrTimerRunning)

	snap, err := timer.Snapshot(ctx, t0.Add(90*time.Second))
	require.NoError(t, err)
	assert.True(t, snap.Running)
	assert.Equal(t, 90, snap.StopwatchSeconds)
	assert.Equal(t, "00:01:30", snap.Display)

	snap, err = timer.Stop(ctx, t0.Add(100*time.Second))
	require.NoError(t, err)
	assert.False(t, snap.Running)
	assert.Equal(t, 100, snap.StopwatchSeconds)

	_, err = timer.StartStopwatch(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	snap, err = timer.Stop(ctx, t0.Add(time.Hour+20*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 120, snap.StopwatchSeconds)

	// Stopping an idle timer is harmless.
	snap, err = timer.Stop(ctx, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 120, snap.StopwatchSeconds)

	require.NoError(t, timer.Reset(ctx))
	snap, err = timer.Snapshot(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, TimerSnapshot{Display: "00:00:00"}, snap)

	assert.Equal(t, []string{SourceStopwatch, SourceStopwatch}, completer.Sources())
}

func TestCountdownFinishesOnTick(t *testing.T) {
	completer := &recordingCompleter{}
	timer := NewTimer(NewMemoryState(), completer)
	ctx := t.Context()

	_, err := timer.StartCountdown(ctx, 0, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	snap, err := timer.StartCountdown(ctx, 25, t0)
	require.NoError(t, err)
	assert.Equal(t, 25*60, snap.RemainingSeconds)
	assert.Equal(t, "00:25:00", snap.Display)

	_, err = timer.StartCountdown(ctx, 5, t0)
	assert.ErrorIs(t, err, ErrTimerRunning)
	_, err = timer.StartStopwatch(ctx, t0)
	assert.ErrorIs(t, err, ErrTimerRunning)

	finished, err := timer.Tick(ctx, t0.Add(24*time.Minute))
	require.NoError(t, err)
	assert.False(t, finished)

	snap, err = timer.Snapshot(ctx, t0.Add(24*time.Minute+30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 30, snap.RemainingSeconds)

	finished, err = timer.Tick(ctx, t0.Add(26*time.Minute))
	require.NoError(t, err)
	assert.True(t, finished)

	finished, err = timer.Tick(ctx, t0.Add(27*time.Minute))
	require.NoError(t, err)
	assert.False(t, finished, "a finished countdown only completes once")

	snap, err = timer.Snapshot(ctx, t0.Add(27*time.Minute))
	require.NoError(t, err)
	assert.False(t, snap.Running)
	assert.Equal(t, 0, snap.RemainingSeconds)

	assert.Equal(t, []string{SourceCountdown, SourceCountdownDone}, completer.Sources())
}

func TestStoppingCountdownAbandonsIt(t *testing.T) {
	timer := NewTimer(NewMemoryState(), nil)
	ctx := t.Context()

	_, err := timer.StartCountdown(ctx, 10, t0)
	require.NoError(t, err)
	snap, err := timer.Stop(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, TimerNone, snap.Mode)
	assert.Equal(t, 0, snap.StopwatchSeconds)

	finished, err := timer.Tick(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, finished)
}
