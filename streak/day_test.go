package streak

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-02", "2024-01-02"},
		{"  2024-01-02\n", "2024-01-02"},
		{"2024-01-02T23:30:00+05:00", "2024-01-02"},
		{"Tue Jan 02 2024", "2024-01-02"},
		{"Tue Jan 2 2024", "2024-01-02"},
		{"1/2/2024", "2024-01-02"},
		{"12/31/2023", "2023-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDay(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestParseDayRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "2024-02-30", "2024/01/02", "Invalid Date"} {
		_, err := ParseDay(in)
		assert.ErrorIs(t, err, ErrInvalidDay, in)
	}
}

func TestDaysSinceIgnoresDaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2024-03-10 is 23 hours long in New York.
	before := DayOf(time.Date(2024, 3, 9, 23, 30, 0, 0, loc))
	after := DayOf(time.Date(2024, 3, 11, 0, 15, 0, 0, loc))
	assert.Equal(t, 2, after.DaysSince(before))
	assert.Equal(t, -2, before.DaysSince(after))

	// 2024-11-03 is 25 hours long.
	sat := DayOf(time.Date(2024, 11, 2, 0, 1, 0, 0, loc))
	sun := DayOf(time.Date(2024, 11, 3, 23, 59, 0, 0, loc))
	assert.Equal(t, 1, sun.DaysSince(sat))
	assert.True(t, sat.AddDays(1).Equal(sun))
}

func TestDayOfUsesLocation(t *testing.T) {
	utc := time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)
	west := time.FixedZone("UTC-5", -5*3600)

	assert.Equal(t, "2024-06-01", DayOf(utc).String())
	assert.Equal(t, "2024-05-31", DayOf(utc.In(west)).String())
}

func TestAddDaysAndOrdering(t *testing.T) {
	d := NewDay(2024, time.February, 28)
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2023-12-31", NewDay(2024, time.January, 1).AddDays(-1).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.AddDays(1).Before(d))
	assert.Equal(t, time.Wednesday, d.Weekday())
	assert.Equal(t, "2024-02-01", NewDay(2024, time.January, 32).String())
}

func TestDayJSON(t *testing.T) {
	type wrapper struct {
		When *Day `json:"when"`
	}

	d := NewDay(2024, time.July, 4)
	data, err := json.Marshal(wrapper{When: &d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"when":"2024-07-04"}`, string(data))

	data, err = json.Marshal(wrapper{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"when":null}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"when":"Thu Jul 04 2024"}`), &w))
	require.NotNil(t, w.When)
	assert.True(t, w.When.Equal(d))

	require.Error(t, json.Unmarshal([]byte(`{"when":"nope"}`), &w))
}

func TestZeroDay(t *testing.T) {
	var d Day
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())
	assert.False(t, NewDay(2024, time.January, 1).IsZero())
}
