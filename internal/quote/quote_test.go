package quote

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetQuote(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    Quote
	}{
		{
			name: "ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"content":" Well begun is half done. ","author":"Aristotle"}`))
			},
			want: Quote{Content: "Well begun is half done.", Author: "Aristotle"},
		},
		{
			name: "blank author",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"content":"Do it now.","author":"  "}`))
			},
			want: Quote{Content: "Do it now.", Author: UnknownAuthor},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down", http.StatusBadGateway)
			},
			want: Quote{Content: "Stay curious", Author: UnknownAuthor, Fallback: true},
		},
		{
			name: "garbage",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>`))
			},
			want: Quote{Content: "Stay curious", Author: UnknownAuthor, Fallback: true},
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"content":""}`))
			},
			want: Quote{Content: "Stay curious", Author: UnknownAuthor, Fallback: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, time.Second, "Stay curious", nil)
			assert.Equal(t, tt.want, c.Get(t.Context()))
		})
	}
}

func TestGetQuoteTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 50*time.Millisecond, "", nil)
	q := c.Get(t.Context())
	assert.Equal(t, DefaultFallback, q.Content)
	assert.True(t, q.Fallback)
}

func TestNoURLUsesFallback(t *testing.T) {
	q := NewClient("", time.Second, "", nil).Get(t.Context())
	assert.Equal(t, Quote{Content: DefaultFallback, Author: UnknownAuthor, Fallback: true}, q)
}
