package hub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/madhatter5501/StudyHub/streak"
)

// DefaultReminderTime is used when reminders are enabled without a time.
const DefaultReminderTime = "19:00"

// StudyLog remembers the last day the user studied.
type StudyLog struct {
	mu    sync.Mutex
	store Store
}

// NewStudyLog creates the study log.
func NewStudyLog(store Store) *StudyLog {
	return &StudyLog{store: store}
}

// MarkStudied records today as studied.
func (s *StudyLog) MarkStudied(ctx context.Context, today streak.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _, err := loadJSON[StudyData](ctx, s.store, KeyStudy)
	if err != nil {
		return err
	}
	if data.LastStudyDate != nil && data.LastStudyDate.Equal(today) {
		return nil
	}
	data.LastStudyDate = &today
	return saveJSON(ctx, s.store, KeyStudy, data)
}

// LastStudied returns the last study day, or the zero Day if there is none.
func (s *StudyLog) LastStudied(ctx context.Context) (streak.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _, err := loadJSON[StudyData](ctx, s.store, KeyStudy)
	if err != nil || data.LastStudyDate == nil {
		return streak.Day{}, err
	}
	return *data.LastStudyDate, nil
}

// Reminders decides when to nudge the user to study.
type Reminders struct {
	mu    sync.Mutex
	store Store
	log   *StudyLog
}

// NewReminders creates the reminder service.
func NewReminders(store Store, log *StudyLog) *Reminders {
	return &Reminders{store: store, log: log}
}

// ParseClock validates an HH:MM time of day.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", fmt.Errorf("%w: reminder time must be HH:MM", ErrInvalidInput)
	}
	return t.Format("15:04"), nil
}

// Settings returns the reminder settings.
func (r *Reminders) Settings(ctx context.Context) (ReminderSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(ctx)
}

func (r *Reminders) load(ctx context.Context) (ReminderSettings, error) {
	rs, _, err := loadJSON[ReminderSettings](ctx, r.store, KeyReminder)
	if err != nil {
		return ReminderSettings{}, err
	}
	if rs.Time == "" {
		rs.Time = DefaultReminderTime
	}
	return rs, nil
}

// Configure enables or disables the reminder and sets its time. A blank
// time keeps the current one.
func (r *Reminders) Configure(ctx context.Context, enabled bool, at string) (ReminderSettings, error) {
	var clock string
	if strings.TrimSpace(at) != "" {
		var err error
		if clock, err = ParseClock(at); err != nil {
			return ReminderSettings{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rs, err := r.load(ctx)
	if err != nil {
		return ReminderSettings{}, err
	}
	rs.Enabled = enabled
	if clock != "" {
		rs.Time = clock
	}
	if err := saveJSON(ctx, r.store, KeyReminder, rs); err != nil {
		return ReminderSettings{}, err
	}
	return rs, nil
}

// ShouldRemind reports whether a reminder is due at now: reminders are on,
// the clock reads the configured HH:MM and the user has not studied today.
func (r *Reminders) ShouldRemind(ctx context.Context, now time.Time) (bool, error) {
	r.mu.Lock()
	rs, err := r.load(ctx)
	r.mu.Unlock()
	if err != nil {
		return false, err
	}
	if !rs.Enabled || now.Format("15:04") != rs.Time {
		return false, nil
	}

	today := streak.DayOf(now)
	if rs.LastSent != nil && rs.LastSent.Equal(today) {
		return false, nil
	}
	last, err := r.log.LastStudied(ctx)
	if err != nil {
		return false, err
	}
	return !last.Equal(today), nil
}

// MarkSent records that today's reminder went out.
func (r *Reminders) MarkSent(ctx context.Context, today streak.Day) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, err := r.load(ctx)
	if err != nil {
		return err
	}
	rs.LastSent = &today
	return saveJSON(ctx, r.store, KeyReminder, rs)
}
