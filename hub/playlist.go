package hub

import (
	"fmt"
	"sync"
)

// DefaultTracks is the study playlist shipped with the dashboard.
var DefaultTracks = []string{"music1.mp3", "music2.mp3", "music3.mp3"}

// Playlist cycles through a fixed list of tracks. It is not persisted.
type Playlist struct {
	mu      sync.Mutex
	tracks  []string
	current int
}

// NewPlaylist creates a playlist. An empty list falls back to DefaultTracks.
func NewPlaylist(tracks []string) *Playlist {
	if len(tracks) == 0 {
		tracks = DefaultTracks
	}
	return &Playlist{tracks: append([]string(nil), tracks...)}
}

// Tracks returns the track list.
func (p *Playlist) Tracks() []string {
	return append([]string(nil), p.tracks...)
}

// Current returns the index and name of the current track.
func (p *Playlist) Current() (int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.tracks[p.current]
}

// Next advances to the following track, wrapping to the first.
func (p *Playlist) Next() (int, string) {
	return p.step(1)
}

// Prev goes back one track, wrapping to the last.
func (p *Playlist) Prev() (int, string) {
	return p.step(-1)
}

func (p *Playlist) step(delta int) (int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.tracks)
	p.current = ((p.current+delta)%n + n) % n
	return p.current, p.tracks[p.current]
}

// Select jumps to track i.
func (p *Playlist) Select(i int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.tracks) {
		return "", fmt.Errorf("track %d: %w", i, ErrNotFound)
	}
	p.current = i
	return p.tracks[i], nil
}

// Label is the text shown under the player, e.g. "Track: music1.mp3".
func Label(track string) string {
	return "Track: " + track
}
