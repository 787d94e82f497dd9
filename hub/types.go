// Package hub provides the widgets of the StudyHub dashboard.
// Every widget keeps its data under one key of a Store, read and written whole.
package hub

import (
	"strings"
	"time"

	"github.com/madhatter5501/StudyHub/streak"
)

// Store keys. They match the keys the browser dashboard kept in local storage
// so an exported local-storage dump can be imported as-is.
const (
	KeyTodos      = "todoList"
	KeyDiscussion = "discussionThread"
	KeyPlanner    = "plannerData"
	KeyStreak     = streak.DefaultKey
	KeyStudy      = "studyData"
	KeyNotes      = "dailyNotes_v1"
	KeyLibrary    = "library"
	KeyTimer      = "studyTimer"
	KeyStopwatch  = "stopwatchSeconds"
	KeyDarkMode   = "darkModeEnabled"
	KeySticky     = "yourhub_sticky_note"
	KeyReminder   = "reminderSettings"
	KeyMockExam   = "mockExam"
)

// Todo is a to-do list entry with a due date.
type Todo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Date        streak.Day `json:"date"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Progress summarises the to-do list.
type Progress struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Percent int `json:"percent"`
}

// NoteTask is a checklist item inside a daily note.
type NoteTask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// DailyNote holds the free-text note and checklist for one calendar day.
type DailyNote struct {
	Note  string     `json:"note"`
	Tasks []NoteTask `json:"tasks"`
}

// HasContent reports whether the note has non-blank text or any task.
func (n DailyNote) HasContent() bool {
	return len(n.Tasks) > 0 || strings.TrimSpace(n.Note) != ""
}

// Post is a discussion board message. TimeText keeps a posting time that
// could not be parsed, as written by the browser dashboard's toLocaleString.
type Post struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Text     string    `json:"text"`
	Time     time.Time `json:"time"`
	TimeText string    `json:"-"`
}

// Book is a library catalog entry. Progress is a percentage.
type Book struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Tags     []string  `json:"tags"`
	FileURL  string    `json:"fileURL"`
	Progress int       `json:"progress"`
	Notes    string    `json:"notes"`
	AddedAt  time.Time `json:"addedAt"`
}

// StudyData records when the user last studied.
type StudyData struct {
	LastStudyDate *streak.Day `json:"lastStudyDate,omitempty"`
}

// ReminderSettings configures the daily study reminder.
type ReminderSettings struct {
	Enabled  bool        `json:"enabled"`
	Time     string      `json:"time"` // HH:MM, local time
	LastSent *streak.Day `json:"lastSent,omitempty"`
}

// TimerMode is the kind of study timer.
type TimerMode string

const (
	TimerNone      TimerMode = ""
	TimerStopwatch TimerMode = "stopwatch"
	TimerCountdown TimerMode = "countdown"
)

// TimerState is the persisted study timer.
type TimerState struct {
	Mode             TimerMode `json:"mode"`
	Running          bool      `json:"running"`
	StartedAt        time.Time `json:"startedAt,omitempty"`
	StopwatchSeconds int       `json:"stopwatchSeconds"` // accumulated, excluding the current run
	CountdownSeconds int       `json:"countdownSeconds"` // length of the current countdown
}

// TimerSnapshot is the timer as seen at one instant.
type TimerSnapshot struct {
	Mode             TimerMode `json:"mode"`
	Running          bool      `json:"running"`
	StopwatchSeconds int       `json:"stopwatchSeconds"`
	RemainingSeconds int       `json:"remainingSeconds"`
	Display          string    `json:"display"`
}

// MockOutcome is how the last mock exam ended.
type MockOutcome string

const (
	MockPending  MockOutcome = ""
	MockFinished MockOutcome = "finished"
	MockEnded    MockOutcome = "ended"
)

// MockExamState is the persisted mock exam session.
type MockExamState struct {
	PaperName       string      `json:"paperName"`
	PaperURL        string      `json:"paperURL,omitempty"`
	DurationMinutes int         `json:"durationMinutes"`
	Running         bool        `json:"running"`
	StartedAt       time.Time   `json:"startedAt,omitempty"`
	Outcome         MockOutcome `json:"outcome,omitempty"`
	MinutesElapsed  int         `json:"minutesElapsed,omitempty"`
}

// MockExamStatus is the mock exam as seen at one instant.
type MockExamStatus struct {
	PaperName        string      `json:"paperName"`
	PaperURL         string      `json:"paperURL,omitempty"`
	Running          bool        `json:"running"`
	RemainingSeconds int         `json:"remainingSeconds"`
	Outcome          MockOutcome `json:"outcome,omitempty"`
	Message          string      `json:"message"`
}

// PlannerDay is one cell of the weekly or monthly planner.
type PlannerDay struct {
	Day      streak.Day `json:"day"`
	Number   int        `json:"number"`
	Weekday  string     `json:"weekday"`
	IsToday  bool       `json:"isToday"`
	HasNotes bool       `json:"hasNotes"`
	Plan     string     `json:"plan,omitempty"`
}

// MonthView is the monthly planner grid. LeadingBlanks is the number of
// empty cells before the 1st in a Sunday-first grid.
type MonthView struct {
	Title         string       `json:"title"`
	Year          int          `json:"year"`
	Month         time.Month   `json:"month"`
	Weekdays      []string     `json:"weekdays"`
	LeadingBlanks int          `json:"leadingBlanks"`
	Days          []PlannerDay `json:"days"`
}

// WeekView is the weekly planner, Sunday to Saturday.
type WeekView struct {
	Start streak.Day   `json:"start"`
	End   streak.Day   `json:"end"`
	Days  []PlannerDay `json:"days"`
}
