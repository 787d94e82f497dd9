package streak

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDay is returned by ParseDay for strings that are not a calendar date.
var ErrInvalidDay = errors.New("invalid calendar day")

// dayLayouts are tried in order by ParseDay. The last two are the formats the
// browser dashboard wrote (Date.toDateString and en-US toLocaleDateString).
var dayLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"Mon Jan 02 2006",
	"Mon Jan 2 2006",
	"1/2/2006",
}

// Day is a calendar date with no time of day and no zone.
// The zero Day is "no date".
type Day struct {
	year  int
	month time.Month
	day   int
}

// NewDay returns the calendar day for the given date, normalising overflow
// the same way time.Date does (e.g. January 32 is February 1).
func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{year: y, month: m, day: d}
}

// ParseDay parses s as a calendar day. Surrounding whitespace is ignored.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, fmt.Errorf("%w: empty", ErrInvalidDay)
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DayOf(t), nil
		}
	}
	return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

// MustParseDay is ParseDay for constants in tests and tables; it panics on error.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) Year() int             { return d.year }
func (d Day) Month() time.Month     { return d.month }
func (d Day) Day() int              { return d.day }
func (d Day) IsZero() bool          { return d == Day{} }
func (d Day) Equal(o Day) bool      { return d == o }
func (d Day) Before(o Day) bool     { return d.ordinal() < o.ordinal() }
func (d Day) Weekday() time.Weekday { return d.utc().Weekday() }

// AddDays returns the day n calendar days after d (before, for negative n).
func (d Day) AddDays(n int) Day {
	return DayOf(d.utc().AddDate(0, 0, n))
}

// DaysSince returns the number of calendar days from o to d. It is negative
// when o is after d. Day ordinals are computed in UTC, so daylight-saving
// transitions in the caller's zone never change the result.
func (d Day) DaysSince(o Day) int {
	return int(d.ordinal() - o.ordinal())
}

// String returns the ISO-8601 form, or "" for the zero Day.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input yields the zero Day.
func (d *Day) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Day) utc() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d Day) ordinal() int64 {
	return d.utc().Unix() / 86400
}
