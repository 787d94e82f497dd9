// Package quote fetches the motivational quote shown on the dashboard.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/madhatter5501/StudyHub/internal/logfields"
)

// Defaults used when the quote service is unavailable.
const (
	DefaultFallback = "Keep on shining!"
	UnknownAuthor   = "Unknown"
)

// Quote is a quotation and its author.
type Quote struct {
	Content  string `json:"content"`
	Author   string `json:"author"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Client fetches quotes from a JSON endpoint returning {"content","author"}.
type Client struct {
	url      string
	fallback string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a quote client. An empty fallback uses DefaultFallback.
func NewClient(url string, timeout time.Duration, fallback string, logger *slog.Logger) *Client {
	if fallback == "" {
		fallback = DefaultFallback
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:      url,
		fallback: fallback,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Get returns a quote. It never fails: any error yields the fallback quote.
func (c *Client) Get(ctx context.Context) Quote {
	q, err := c.fetch(ctx)
	if err != nil {
		c.logger.Debug("Quote fetch failed, using fallback", logfields.Error(err))
		return Quote{Content: c.fallback, Author: UnknownAuthor, Fallback: true}
	}
	return q
}

func (c *Client) fetch(ctx context.Context) (Quote, error) {
	if c.url == "" {
		return Quote{}, fmt.Errorf("no quote URL configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote service returned %s", resp.Status)
	}

	var q Quote
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&q); err != nil {
		return Quote{}, fmt.Errorf("failed to decode quote: %w", err)
	}
	q.Content = strings.TrimSpace(q.Content)
	if q.Content == "" {
		return Quote{}, fmt.Errorf("quote service returned an empty quote")
	}
	q.Author = strings.TrimSpace(q.Author)
	if q.Author == "" {
		q.Author = UnknownAuthor
	}
	q.Fallback = false
	return q, nil
}
