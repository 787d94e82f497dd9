package hub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MinMockMinutes is the shortest mock exam that can be started.
const MinMockMinutes = 10

// MockExam times a practice paper under exam conditions.
type MockExam struct {
	mu        sync.Mutex
	store     Store
	completer Completer
}

// NewMockExam creates the mock exam service.
func NewMockExam(store Store, completer Completer) *MockExam {
	return &MockExam{store: store, completer: completer}
}

func (m *MockExam) load(ctx context.Context) (MockExamState, error) {
	st, _, err := loadJSON[MockExamState](ctx, m.store, KeyMockExam)
	return st, err
}

// LoadPaper sets the paper for the next session. Loading a paper while a
// session is running is refused.
func (m *MockExam) LoadPaper(ctx context.Context, name, url string) (MockExamStatus, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MockExamStatus{}, fmt.Errorf("%w: paper name is required", ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load(ctx)
	if err != nil {
		return MockExamStatus{}, err
	}
	if st.Running {
		return MockExamStatus{}, ErrTimerRunning
	}
	st = MockExamState{PaperName: name, PaperURL: strings.TrimSpace(url)}
	if err := saveJSON(ctx, m.store, KeyMockExam, st); err != nil {
		return MockExamStatus{}, err
	}
	return mockStatus(st, time.Time{}), nil
}

// Start begins a session of durationMinutes.
func (m *MockExam) Start(ctx context.Context, durationMinutes int, now time.Time) (MockExamStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load(ctx)
	if err != nil {
		return MockExamStatus{}, err
	}
	if st.Running {
		return MockExamStatus{}, ErrTimerRunning
	}
	if st.PaperName == "" {
		return MockExamStatus{}, ErrNoPaper
	}
	if durationMinutes < MinMockMinutes {
		return MockExamStatus{}, fmt.Errorf("%w: a mock test must last at least %d minutes", ErrInvalidInput, MinMockMinutes)
	}

	st.DurationMinutes = durationMinutes
	st.Running = true
	st.StartedAt = now
	st.Outcome = MockPending
	st.MinutesElapsed = 0
	if err := saveJSON(ctx, m.store, KeyMockExam, st); err != nil {
		return MockExamStatus{}, err
	}
	return mockStatus(st, now), nil
}

// End stops a running session early and returns the whole minutes elapsed.
func (m *MockExam) End(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	st, err := m.load(ctx)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	if !st.Running {
		m.mu.Unlock()
		return 0, ErrTimerIdle
	}

	total := st.DurationMinutes * 60
	used := total - mockRemaining(st, now)
	st.Running = false
	st.Outcome = MockEnded
	st.MinutesElapsed = used / 60
	if err := saveJSON(ctx, m.store, KeyMockExam, st); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.mu.Unlock()

	if m.completer != nil {
		if err := m.completer.Complete(ctx, SourceMockEnded, now); err != nil {
			return st.MinutesElapsed, err
		}
	}
	return st.MinutesElapsed, nil
}

// Tick finishes a session whose time is up. It reports whether one finished.
func (m *MockExam) Tick(ctx context.Context, now time.Time) (bool, error) {
	m.mu.Lock()
	st, err := m.load(ctx)
	if err != nil {
		m.mu.Unlock()
		return false, err
	}
	if !st.Running || mockRemaining(st, now) > 0 {
		m.mu.Unlock()
		return false, nil
	}

	st.Running = false
	st.Outcome = MockFinished
	st.MinutesElapsed = st.DurationMinutes
	if err := saveJSON(ctx, m.store, KeyMockExam, st); err != nil {
		m.mu.Unlock()
		return false, err
	}
	m.mu.Unlock()

	if m.completer != nil {
		if err := m.completer.Complete(ctx, SourceMockFinished, now); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Status returns the session as of now.
func (m *MockExam) Status(ctx context.Context, now time.Time) (MockExamStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load(ctx)
	if err != nil {
		return MockExamStatus{}, err
	}
	return mockStatus(st, now), nil
}

func mockStatus(st MockExamState, now time.Time) MockExamStatus {
	status := MockExamStatus{
		PaperName: st.PaperName,
		PaperURL:  st.PaperURL,
		Running:   st.Running,
		Outcome:   st.Outcome,
	}
	switch {
	case st.Running:
		status.RemainingSeconds = mockRemaining(st, now)
		status.Message = FormatRemaining(status.RemainingSeconds)
	case st.Outcome == MockFinished:
		status.Message = "TIME'S UP! Test finished."
	case st.Outcome == MockEnded:
		status.Message = fmt.Sprintf("Test ended early. Duration: %d minutes.", st.MinutesElapsed)
	case st.PaperName != "":
		status.Message = "Ready to start."
	default:
		status.Message = "No file loaded."
	}
	return status
}

// FormatRemaining renders the mock exam countdown, e.g. "Remaining: 59:30".
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("Remaining: %02d:%02d", seconds/60, seconds%60)
}

func mockRemaining(st MockExamState, now time.Time) int {
	left := st.DurationMinutes*60 - elapsedSeconds(st.StartedAt, now)
	if left < 0 {
		return 0
	}
	return left
}
