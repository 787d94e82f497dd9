package hub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AnonymousUser is the name shown for posts without a username.
const AnonymousUser = "Anonymous"

// Discussion is the discussion board. Posts are kept newest first.
type Discussion struct {
	mu    sync.Mutex
	store Store
}

// NewDiscussion creates the discussion board.
func NewDiscussion(store Store) *Discussion {
	return &Discussion{store: store}
}

// List returns all posts, newest first.
func (d *Discussion) List(ctx context.Context) ([]Post, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	posts, err := loadList(ctx, d.store, KeyDiscussion, postID)
	return posts, err
}

// Post adds a message to the top of the board.
func (d *Discussion) Post(ctx context.Context, username, text string, now time.Time) (*Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is required", ErrInvalidInput)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = AnonymousUser
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	posts, err := loadList(ctx, d.store, KeyDiscussion, postID)
	if err != nil {
		return nil, err
	}
	post := Post{
		ID:       uuid.New().String(),
		Username: username,
		Text:     text,
		Time:     now,
	}
	posts = append([]Post{post}, posts...)
	if err := saveJSON(ctx, d.store, KeyDiscussion, posts); err != nil {
		return nil, err
	}
	return &post, nil
}

func postID(p *Post) *string { return &p.ID }
