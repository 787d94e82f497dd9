package hub

import (
	"context"
	"errors"
	"sync"
	"time"
)

// --- Test Helpers ---

// recordingCompleter remembers every completion it is asked to record.
type recordingCompleter struct {
	mu      sync.Mutex
	sources []string
	err     error
}

func (c *recordingCompleter) Complete(_ context.Context, source string, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, source)
	return c.err
}

func (c *recordingCompleter) Sources() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sources...)
}

// failingStore fails every call.
type failingStore struct{}

var errDisk = errors.New("disk on fire")

func (failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errDisk }
func (failingStore) Set(context.Context, string, []byte) error         { return errDisk }
func (failingStore) Delete(context.Context, string) error              { return errDisk }
func (failingStore) Keys(context.Context) ([]string, error)            { return nil, errDisk }

var t0 = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)
