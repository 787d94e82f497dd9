// Package streak tracks consecutive study days.
//
// A Tracker owns one persisted State and moves it through three transitions:
// a load-time Reconcile that breaks streaks with a missed day, and a
// RecordCompletion that starts, extends or restarts a streak. All date logic is
// done on calendar days supplied by the caller, so the package never reads the
// wall clock.
package streak

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultKey is the store key holding the streak record.
const DefaultKey = "streak"

// Store is the persistence port the tracker reads and writes through.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// State is the persisted streak. Count is zero exactly when LastCompletedDate is nil.
type State struct {
	Count             int  `json:"count"`
	LastCompletedDate *Day `json:"lastCompletedDate"`
}

// Active reports whether a streak is running.
func (s State) Active() bool {
	return s.Count > 0 && s.LastCompletedDate != nil
}

// Transition names the change a tracker operation applied.
type Transition string

const (
	TransitionNone     Transition = "none"
	TransitionGenesis  Transition = "genesis"  // first completion, count 1
	TransitionExtended Transition = "extended" // completion the day after the last one
	TransitionRestart  Transition = "restart"  // completion after a missed day, count back to 1
	TransitionBroken   Transition = "broken"   // reconcile found a missed day, count 0
	TransitionRepaired Transition = "repaired" // corrupt or inconsistent record reset to 0
)

// Observer is called after every persisted change.
type Observer func(state State, transition Transition)

// Option configures a Tracker.
type Option func(*Tracker)

// WithKey overrides the store key.
func WithKey(key string) Option {
	return func(t *Tracker) { t.key = key }
}

// WithLogger sets the logger used for repairs and transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithObserver registers a callback for persisted changes.
func WithObserver(o Observer) Option {
	return func(t *Tracker) { t.observers = append(t.observers, o) }
}

// Tracker maintains the streak state in a Store.
type Tracker struct {
	mu        sync.Mutex
	store     Store
	key       string
	logger    *slog.Logger
	observers []Observer
}

// NewTracker creates a tracker over store.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		key:    DefaultKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// record is the wire form; the date stays a string so a corrupt value can be
// told apart from a missing one.
type record struct {
	Count             int     `json:"count"`
	LastCompletedDate *string `json:"lastCompletedDate"`
}

// Current returns the stored state without modifying it. A corrupt record reads as no streak.
func (t *Tracker) Current(ctx context.Context) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, _, err := t.load(ctx)
	return st, err
}

// Reconcile breaks the streak when the last completion is more than one
// calendar day away from today. It runs once at application start.
func (t *Tracker) Reconcile(ctx context.Context, today Day) (State, error) {
	return t.apply(ctx, func(st State, valid bool) (State, Transition) {
		if !valid {
			return State{}, TransitionRepaired
		}
		if st.LastCompletedDate == nil {
			return st, TransitionNone
		}
		last := *st.LastCompletedDate
		gap := today.DaysSince(last)
		if gap < 0 {
			gap = -gap
		}
		if gap > 1 && !last.Equal(today) {
			return State{}, TransitionBroken
		}
		return st, TransitionNone
	})
}

// RecordCompletion counts today as a study day. Repeated calls on the same
// calendar day leave the count unchanged.
func (t *Tracker) RecordCompletion(ctx context.Context, today Day) (State, error) {
	return t.apply(ctx, func(st State, valid bool) (State, Transition) {
		if !valid || st.LastCompletedDate == nil {
			return started(today), TransitionGenesis
		}
		last := *st.LastCompletedDate
		switch {
		case last.Equal(today):
			return st, TransitionNone
		case last.AddDays(1).Equal(today):
			return State{Count: st.Count + 1, LastCompletedDate: &today}, TransitionExtended
		default:
			return started(today), TransitionRestart
		}
	})
}

func started(today Day) State {
	return State{Count: 1, LastCompletedDate: &today}
}

// apply runs one read-modify-persist step under the lock and notifies
// observers after the lock is released.
func (t *Tracker) apply(ctx context.Context, step func(State, bool) (State, Transition)) (State, error) {
	t.mu.Lock()
	current, valid, err := t.load(ctx)
	if err != nil {
		t.mu.Unlock()
		return State{}, err
	}

	next, transition := step(current, valid)
	if transition == TransitionNone {
		t.mu.Unlock()
		return current, nil
	}

	if err := t.save(ctx, next); err != nil {
		t.mu.Unlock()
		return current, err
	}
	t.mu.Unlock()

	t.logger.Debug("Streak updated",
		slog.String("transition", string(transition)),
		slog.Int("count", next.Count),
		slog.String("last_completed", dayString(next.LastCompletedDate)))

	for _, o := range t.observers {
		o(next, transition)
	}
	return next, nil
}

// load reads the record. valid is false when the stored value is corrupt or
// breaks the count/date invariant; the returned state is then the zero State.
func (t *Tracker) load(ctx context.Context) (State, bool, error) {
	raw, ok, err := t.store.Get(ctx, t.key)
	if err != nil {
		return State{}, false, fmt.Errorf("failed to read streak: %w", err)
	}
	if !ok {
		return State{}, true, nil
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.logger.Warn("Corrupt streak record", slog.String("error", err.Error()))
		return State{}, false, nil
	}

	if rec.LastCompletedDate == nil {
		return State{}, rec.Count == 0, nil
	}

	day, err := ParseDay(*rec.LastCompletedDate)
	if err != nil {
		t.logger.Warn("Corrupt streak date", slog.String("value", *rec.LastCompletedDate))
		return State{}, false, nil
	}
	if rec.Count <= 0 {
		return State{}, false, nil
	}
	return State{Count: rec.Count, LastCompletedDate: &day}, true, nil
}

func (t *Tracker) save(ctx context.Context, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to serialize streak: %w", err)
	}
	if err := t.store.Set(ctx, t.key, data); err != nil {
		return fmt.Errorf("failed to write streak: %w", err)
	}
	return nil
}

func dayString(d *Day) string {
	if d == nil {
		return ""
	}
	return d.String()
}
