// Package metrics defines the observability hooks StudyHub reports through.
package metrics

import "time"

// Recorder receives application metrics. Implementations forward to Prometheus
// or drop them; NoopRecorder is the default when metrics are disabled.
type Recorder interface {
	SetStreak(count int)
	IncTransition(transition string)
	IncCompletion(source string)
	IncReminder(sent bool)
	IncJobRun(job string, success bool)
	ObserveHTTPRequest(route string, status int, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) SetStreak(int)                                 {}
func (NoopRecorder) IncTransition(string)                          {}
func (NoopRecorder) IncCompletion(string)                          {}
func (NoopRecorder) IncReminder(bool)                              {}
func (NoopRecorder) IncJobRun(string, bool)                        {}
func (NoopRecorder) ObserveHTTPRequest(string, int, time.Duration) {}
