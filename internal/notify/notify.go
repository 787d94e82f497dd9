// Package notify delivers StudyHub events such as streak changes and study
// reminders to the outside world.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/madhatter5501/StudyHub/internal/logfields"
)

// Event kinds.
const (
	KindStreak   = "streak"
	KindReminder = "reminder"
	KindSession  = "session"
)

// Event is one notification.
type Event struct {
	Kind  string    `json:"kind"`
	Title string    `json:"title"`
	Body  string    `json:"body,omitempty"`
	Data  any       `json:"data,omitempty"`
	At    time.Time `json:"at"`
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// LogNotifier writes events to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs e at info level.
func (l LogNotifier) Notify(_ context.Context, e Event) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info(e.Title, logfields.Event(e.Kind), slog.String("body", e.Body))
	return nil
}

// Multi fans an event out to several notifiers. Every notifier is tried;
// the errors are joined.
type Multi []Notifier

// Notify delivers e to every notifier.
func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes events as JSON on "<prefix>.<kind>".
type NATSNotifier struct {
	pub    publisher
	conn   *nats.Conn
	prefix string
}

// ConnectNATS connects to the NATS server at url.
func ConnectNATS(url, prefix string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("studyhub"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	n := newNATSNotifier(conn, prefix)
	n.conn = conn
	return n, nil
}

func newNATSNotifier(pub publisher, prefix string) *NATSNotifier {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = "studyhub"
	}
	return &NATSNotifier{pub: pub, prefix: prefix}
}

// Subject returns the subject events of kind are published on.
func (n *NATSNotifier) Subject(kind string) string {
	return n.prefix + "." + kind
}

// Notify publishes e.
func (n *NATSNotifier) Notify(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.pub.Publish(n.Subject(e.Kind), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close drains the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
