package hub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Library is the book catalog.
type Library struct {
	mu    sync.Mutex
	store Store
}

// NewLibrary creates the library service.
func NewLibrary(store Store) *Library {
	return &Library{store: store}
}

// NewBook is the input for Library.Add.
type NewBook struct {
	Title   string
	Author  string
	Tags    string // comma separated
	FileURL string
}

// NormalizeTags splits a comma separated tag list, trims each tag and drops
// empty ones. Tags that differ only in case are kept once, first spelling wins.
func NormalizeTags(csv string) []string {
	fold := cases.Fold()
	tags := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(csv, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		key := fold.String(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	return tags
}

// List returns all books in the order they were added.
func (l *Library) List(ctx context.Context) ([]Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := loadList(ctx, l.store, KeyLibrary, bookID)
	return books, err
}

// Get returns one book.
func (l *Library) Get(ctx context.Context, id string) (*Book, error) {
	books, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	i := indexBook(books, id)
	if i < 0 {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return &books[i], nil
}

// Add catalogs a book. A title is required.
func (l *Library) Add(ctx context.Context, in NewBook, now time.Time) (*Book, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := loadList(ctx, l.store, KeyLibrary, bookID)
	if err != nil {
		return nil, err
	}
	book := Book{
		ID:      uuid.New().String(),
		Title:   title,
		Author:  strings.TrimSpace(in.Author),
		Tags:    NormalizeTags(in.Tags),
		FileURL: strings.TrimSpace(in.FileURL),
		AddedAt: now,
	}
	books = append(books, book)
	if err := saveJSON(ctx, l.store, KeyLibrary, books); err != nil {
		return nil, err
	}
	return &book, nil
}

// Update sets reading progress and notes. Progress is clamped to 0..100.
func (l *Library) Update(ctx context.Context, id string, progress int, notes string) (*Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := loadList(ctx, l.store, KeyLibrary, bookID)
	if err != nil {
		return nil, err
	}
	i := indexBook(books, id)
	if i < 0 {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	books[i].Progress = min(max(progress, 0), 100)
	books[i].Notes = notes
	if err := saveJSON(ctx, l.store, KeyLibrary, books); err != nil {
		return nil, err
	}
	book := books[i]
	return &book, nil
}

// Delete removes a book.
func (l *Library) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := loadList(ctx, l.store, KeyLibrary, bookID)
	if err != nil {
		return err
	}
	i := indexBook(books, id)
	if i < 0 {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	books = append(books[:i], books[i+1:]...)
	return saveJSON(ctx, l.store, KeyLibrary, books)
}

func bookID(b *Book) *string { return &b.ID }

func indexBook(books []Book, id string) int {
	for i := range books {
		if books[i].ID == id {
			return i
		}
	}
	return -1
}
