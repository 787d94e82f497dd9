package hub

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Timer is the study timer: an accumulating stopwatch or a countdown,
// one at a time. Starting either counts as studying today.
type Timer struct {
	mu        sync.Mutex
	store     Store
	completer Completer
}

// NewTimer creates the study timer.
func NewTimer(store Store, completer Completer) *Timer {
	return &Timer{store: store, completer: completer}
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

func (t *Timer) load(ctx context.Context) (TimerState, error) {
	st, ok, err := loadJSON[TimerState](ctx, t.store, KeyTimer)
	if err != nil || ok {
		return st, err
	}

	// Stores written by the browser dashboard only kept the stopwatch total.
	raw, found, err := t.store.Get(ctx, KeyStopwatch)
	if err != nil {
		return st, fmt.Errorf("failed to read %s: %w", KeyStopwatch, err)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(string(raw))); found && err == nil && n > 0 {
		st.Mode = TimerStopwatch
		st.StopwatchSeconds = n
	}
	return st, nil
}

// StartStopwatch resumes the stopwatch from its accumulated time.
func (t *Timer) StartStopwatch(ctx context.Context, now time.Time) (TimerSnapshot, error) {
	return t.start(ctx, now, SourceStopwatch, func(st *TimerState) {
		st.Mode = TimerStopwatch
		st.CountdownSeconds = 0
	})
}

// StartCountdown starts a countdown of the given length.
func (t *Timer) StartCountdown(ctx context.Context, minutes int, now time.Time) (TimerSnapshot, error) {
	if minutes < 1 {
		return TimerSnapshot{}, fmt.Errorf("%w: countdown needs at least 1 minute", ErrInvalidInput)
	}
	return t.start(ctx, now, SourceCountdown, func(st *TimerState) {
		st.Mode = TimerCountdown
		st.CountdownSeconds = minutes * 60
	})
}

func (t *Timer) start(ctx context.Context, now time.Time, source string, set func(*TimerState)) (TimerSnapshot, error) {
	t.mu.Lock()
	st, err := t.load(ctx)
	if err != nil {
		t.mu.Unlock()
		return TimerSnapshot{}, err
	}
	if st.Running {
		t.mu.Unlock()
		return TimerSnapshot{}, ErrTimerRunning
	}

	set(&st)
	st.Running = true
	st.StartedAt = now
	if err := saveJSON(ctx, t.store, KeyTimer, st); err != nil {
		t.mu.Unlock()
		return TimerSnapshot{}, err
	}
	t.mu.Unlock()

	snap := snapshot(st, now)
	if t.completer != nil {
		if err := t.completer.Complete(ctx, source, now); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// Stop halts the timer. Stopwatch time is kept; a countdown is abandoned.
// Stopping an idle timer does nothing.
func (t *Timer) Stop(ctx context.Context, now time.Time) (TimerSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.load(ctx)
	if err != nil {
		return TimerSnapshot{}, err
	}
	if !st.Running {
		return snapshot(st, now), nil
	}

	if st.Mode == TimerStopwatch {
		st.StopwatchSeconds += elapsedSeconds(st.StartedAt, now)
	} else {
		st.Mode = TimerNone
		st.CountdownSeconds = 0
	}
	st.Running = false
	st.StartedAt = time.Time{}
	if err := saveJSON(ctx, t.store, KeyTimer, st); err != nil {
		return TimerSnapshot{}, err
	}
	return snapshot(st, now), nil
}

// Reset stops the timer and zeroes the stopwatch.
func (t *Timer) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return saveJSON(ctx, t.store, KeyTimer, TimerState{})
}

// Snapshot returns the timer as of now.
func (t *Timer) Snapshot(ctx context.Context, now time.Time) (TimerSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.load(ctx)
	if err != nil {
		return TimerSnapshot{}, err
	}
	return snapshot(st, now), nil
}

// Tick finishes a countdown whose time is up and records the session as a
// completion. It reports whether a countdown finished.
func (t *Timer) Tick(ctx context.Context, now time.Time) (bool, error) {
	t.mu.Lock()
	st, err := t.load(ctx)
	if err != nil {
		t.mu.Unlock()
		return false, err
	}
	if !st.Running || st.Mode != TimerCountdown || remainingSeconds(st, now) > 0 {
		t.mu.Unlock()
		return false, nil
	}

	st.Running = false
	st.StartedAt = time.Time{}
	st.CountdownSeconds = 0
	if err := saveJSON(ctx, t.store, KeyTimer, st); err != nil {
		t.mu.Unlock()
		return false, err
	}
	t.mu.Unlock()

	if t.completer != nil {
		if err := t.completer.Complete(ctx, SourceCountdownDone, now); err != nil {
			return true, err
		}
	}
	return true, nil
}

func snapshot(st TimerState, now time.Time) TimerSnapshot {
	snap := TimerSnapshot{
		Mode:             st.Mode,
		Running:          st.Running,
		StopwatchSeconds: st.StopwatchSeconds,
	}
	if st.Running && st.Mode == TimerStopwatch {
		snap.StopwatchSeconds += elapsedSeconds(st.StartedAt, now)
	}
	if st.Mode == TimerCountdown {
		snap.RemainingSeconds = remainingSeconds(st, now)
		snap.Display = FormatClock(snap.RemainingSeconds)
	} else {
		snap.Display = FormatClock(snap.StopwatchSeconds)
	}
	return snap
}

func remainingSeconds(st TimerState, now time.Time) int {
	if !st.Running {
		return st.CountdownSeconds
	}
	left := st.CountdownSeconds - elapsedSeconds(st.StartedAt, now)
	if left < 0 {
		return 0
	}
	return left
}

func elapsedSeconds(from, to time.Time) int {
	if from.IsZero() || to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / time.Second)
}
