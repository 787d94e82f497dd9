package hub

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/madhatter5501/StudyHub/streak"
)

// Todos is the to-do list. Checking a task off counts towards the streak.
type Todos struct {
	mu        sync.Mutex
	store     Store
	completer Completer
}

// NewTodos creates the to-do list service.
func NewTodos(store Store, completer Completer) *Todos {
	return &Todos{store: store, completer: completer}
}

// List returns all tasks in insertion order.
func (t *Todos) List(ctx context.Context) ([]Todo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	todos, err := loadList(ctx, t.store, KeyTodos, todoID)
	return todos, err
}

// Add appends a task. Both name and due date are required.
func (t *Todos) Add(ctx context.Context, name, due string, now time.Time) (*Todo, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(due) == "" {
		return nil, fmt.Errorf("%w: task name and date are required", ErrInvalidInput)
	}
	day, err := streak.ParseDay(due)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	todos, err := loadList(ctx, t.store, KeyTodos, todoID)
	if err != nil {
		return nil, err
	}

	todo := Todo{
		ID:        uuid.New().String(),
		Name:      name,
		Date:      day,
		CreatedAt: now,
	}
	todos = append(todos, todo)
	if err := saveJSON(ctx, t.store, KeyTodos, todos); err != nil {
		return nil, err
	}
	return &todo, nil
}

// Toggle flips a task's completed flag. Completing a task records a
// completion for the streak; un-completing it does not undo anything.
func (t *Todos) Toggle(ctx context.Context, id string, now time.Time) (*Todo, error) {
	t.mu.Lock()
	todos, err := loadList(ctx, t.store, KeyTodos, todoID)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}

	idx := indexTodo(todos, id)
	if idx < 0 {
		t.mu.Unlock()
		return nil, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}

	todo := &todos[idx]
	todo.Completed = !todo.Completed
	if todo.Completed {
		at := now
		todo.CompletedAt = &at
	} else {
		todo.CompletedAt = nil
	}
	updated := *todo

	if err := saveJSON(ctx, t.store, KeyTodos, todos); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.mu.Unlock()

	if updated.Completed && t.completer != nil {
		if err := t.completer.Complete(ctx, SourceTodo, now); err != nil {
			return &updated, err
		}
	}
	return &updated, nil
}

// Delete removes a task.
func (t *Todos) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	todos, err := loadList(ctx, t.store, KeyTodos, todoID)
	if err != nil {
		return err
	}
	idx := indexTodo(todos, id)
	if idx < 0 {
		return fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	todos = append(todos[:idx], todos[idx+1:]...)
	return saveJSON(ctx, t.store, KeyTodos, todos)
}

// Progress returns the completion ratio of the list, rounded to a whole percent.
func (t *Todos) Progress(ctx context.Context) (Progress, error) {
	todos, err := t.List(ctx)
	if err != nil {
		return Progress{}, err
	}
	return progressOf(todos), nil
}

func progressOf(todos []Todo) Progress {
	p := Progress{Total: len(todos)}
	for _, td := range todos {
		if td.Completed {
			p.Done++
		}
	}
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Done) / float64(p.Total) * 100))
	}
	return p
}

func todoID(t *Todo) *string { return &t.ID }

func indexTodo(todos []Todo, id string) int {
	for i := range todos {
		if todos[i].ID == id {
			return i
		}
	}
	return -1
}
