// Package logfields holds the canonical slog attribute names used across StudyHub.
package logfields

import "log/slog"

const (
	KeyKey        = "key"
	KeyDay        = "day"
	KeySource     = "source"
	KeyCount      = "count"
	KeyTransition = "transition"
	KeyJob        = "job"
	KeyPath       = "path"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyDurationMS = "duration_ms"
	KeyEvent      = "event"
	KeyError      = "error"
)

func Key(k string) slog.Attr          { return slog.String(KeyKey, k) }
func Day(d string) slog.Attr          { return slog.String(KeyDay, d) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Transition(t string) slog.Attr   { return slog.String(KeyTransition, t) }
func Job(name string) slog.Attr       { return slog.String(KeyJob, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Event(name string) slog.Attr     { return slog.String(KeyEvent, name) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
