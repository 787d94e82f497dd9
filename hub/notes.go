package hub

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/madhatter5501/StudyHub/streak"
)

// Notes stores one DailyNote per calendar day, keyed by ISO date.
type Notes struct {
	mu    sync.Mutex
	store Store
}

// NewNotes creates the daily notes service.
func NewNotes(store Store) *Notes {
	return &Notes{store: store}
}

func (n *Notes) load(ctx context.Context) (map[string]DailyNote, error) {
	notes, _, err := loadJSON[map[string]DailyNote](ctx, n.store, KeyNotes)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = make(map[string]DailyNote)
	}
	return notes, nil
}

// update runs fn on the note for day and persists the result. A note left
// without content is removed.
func (n *Notes) update(ctx context.Context, day streak.Day, fn func(*DailyNote) error) (DailyNote, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	notes, err := n.load(ctx)
	if err != nil {
		return DailyNote{}, err
	}
	key := day.String()
	note := notes[key]
	if err := fn(&note); err != nil {
		return DailyNote{}, err
	}
	if note.HasContent() {
		notes[key] = note
	} else {
		delete(notes, key)
	}
	if err := saveJSON(ctx, n.store, KeyNotes, notes); err != nil {
		return DailyNote{}, err
	}
	return note, nil
}

// Get returns the note for day. A day with nothing recorded returns an empty note.
func (n *Notes) Get(ctx context.Context, day streak.Day) (DailyNote, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	notes, err := n.load(ctx)
	if err != nil {
		return DailyNote{}, err
	}
	note := notes[day.String()]
	if note.Tasks == nil {
		note.Tasks = []NoteTask{}
	}
	return note, nil
}

// SetNote replaces the free-text note for day.
func (n *Notes) SetNote(ctx context.Context, day streak.Day, text string) (DailyNote, error) {
	return n.update(ctx, day, func(note *DailyNote) error {
		note.Note = text
		return nil
	})
}

// AddTask puts a new task at the top of the day's checklist.
func (n *Notes) AddTask(ctx context.Context, day streak.Day, text string) (NoteTask, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoteTask{}, fmt.Errorf("%w: task text is required", ErrInvalidInput)
	}
	task := NoteTask{ID: uuid.New().String(), Text: text}
	_, err := n.update(ctx, day, func(note *DailyNote) error {
		note.Tasks = append([]NoteTask{task}, note.Tasks...)
		return nil
	})
	return task, err
}

// ToggleTask flips a task's done flag.
func (n *Notes) ToggleTask(ctx context.Context, day streak.Day, id string) (NoteTask, error) {
	var out NoteTask
	_, err := n.update(ctx, day, func(note *DailyNote) error {
		i := indexTask(note.Tasks, id)
		if i < 0 {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		note.Tasks[i].Done = !note.Tasks[i].Done
		out = note.Tasks[i]
		return nil
	})
	return out, err
}

// EditTask replaces a task's text. Blank text is rejected.
func (n *Notes) EditTask(ctx context.Context, day streak.Day, id, text string) (NoteTask, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoteTask{}, fmt.Errorf("%w: task text is required", ErrInvalidInput)
	}
	var out NoteTask
	_, err := n.update(ctx, day, func(note *DailyNote) error {
		i := indexTask(note.Tasks, id)
		if i < 0 {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		note.Tasks[i].Text = text
		out = note.Tasks[i]
		return nil
	})
	return out, err
}

// DeleteTask removes a task from the day's checklist.
func (n *Notes) DeleteTask(ctx context.Context, day streak.Day, id string) error {
	_, err := n.update(ctx, day, func(note *DailyNote) error {
		i := indexTask(note.Tasks, id)
		if i < 0 {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		note.Tasks = append(note.Tasks[:i], note.Tasks[i+1:]...)
		return nil
	})
	return err
}

// DeleteDay drops everything recorded for day.
func (n *Notes) DeleteDay(ctx context.Context, day streak.Day) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	notes, err := n.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := notes[day.String()]; !ok {
		return nil
	}
	delete(notes, day.String())
	return saveJSON(ctx, n.store, KeyNotes, notes)
}

// HasContent reports whether anything is recorded for day.
func (n *Notes) HasContent(ctx context.Context, day streak.Day) (bool, error) {
	note, err := n.Get(ctx, day)
	if err != nil {
		return false, err
	}
	return note.HasContent(), nil
}

// DaysWithContent returns the days that have a note or task, oldest first.
func (n *Notes) DaysWithContent(ctx context.Context) ([]streak.Day, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	notes, err := n.load(ctx)
	if err != nil {
		return nil, err
	}
	days := make([]streak.Day, 0, len(notes))
	for key, note := range notes {
		if !note.HasContent() {
			continue
		}
		day, err := streak.ParseDay(key)
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

func indexTask(tasks []NoteTask, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
