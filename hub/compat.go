package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// postTimeLayouts are the posting time formats accepted on read: RFC 3339 as
// written by StudyHub, then the toLocaleString forms of the browser dashboard.
var postTimeLayouts = []string{
	time.RFC3339Nano,
	"1/2/2006, 3:04:05 PM",
	"2/1/2006, 15:04:05",
}

// Browsers put a narrow or plain no-break space before AM/PM.
var spaceReplacer = strings.NewReplacer("\u202f", " ", "\u00a0", " ")

func parsePostTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(spaceReplacer.Replace(s))
	for _, layout := range postTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MarshalJSON writes TimeText in place of a zero Time so an unparsed
// legacy time survives a save.
func (p Post) MarshalJSON() ([]byte, error) {
	type post Post
	out := struct {
		post
		Time any `json:"time"`
	}{post: post(p), Time: p.Time}
	if p.Time.IsZero() && p.TimeText != "" {
		out.Time = p.TimeText
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both RFC 3339 and locale formatted times.
func (p *Post) UnmarshalJSON(data []byte) error {
	type post Post
	var in struct {
		post
		Time string `json:"time"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Post(in.post)
	if t, ok := parsePostTime(in.Time); ok {
		p.Time = t
	} else {
		p.TimeText = in.Time
	}
	return nil
}

// UnmarshalJSON accepts the numeric ids (Date.now()) the browser dashboard
// gave books.
func (b *Book) UnmarshalJSON(data []byte) error {
	type book Book
	var in struct {
		book
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*b = Book(in.book)
	id, err := decodeID(in.ID)
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

// decodeID reads a JSON string or number id. Absent and null give "".
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id %s: %w", raw, err)
	}
	return n.String(), nil
}
