package domain

// History is the bounded recency window that feeds diversity scoring.
// It holds artistRepeatLimit*5 tracks and evicts the oldest first.
// History is not safe for concurrent use; the caller owns it.
type History struct {
	capacity int
	tracks   []Track
}

// NewHistory creates a window sized for artistRepeatLimit. Limits below 1 are treated as 1.
func NewHistory(artistRepeatLimit int) *History {
	if artistRepeatLimit < 1 {
		artistRepeatLimit = 1
	}
	return &History{capacity: artistRepeatLimit * 5}
}

// Add appends a track, evicting from the front once capacity is exceeded.
func (h *History) Add(t Track) {
	h.tracks = append(h.tracks, t)
	if over := len(h.tracks) - h.capacity; over > 0 {
		h.tracks = append([]Track(nil), h.tracks[over:]...)
	}
}

// ArtistCount returns how many windowed tracks are by artist.
func (h *History) ArtistCount(artist string) int {
	if h == nil {
		return 0
	}
	n := 0
	for _, t := range h.tracks {
		if t.Artist == artist {
			n++
		}
	}
	return n
}

// Contains reports whether a track with trackID is in the window.
func (h *History) Contains(trackID string) bool {
	if h == nil {
		return false
	}
	for _, t := range h.tracks {
		if t.ID == trackID {
			return true
		}
	}
	return false
}

// Tracks returns the window contents, oldest first.
func (h *History) Tracks() []Track {
	if h == nil {
		return nil
	}
	out := make([]Track, len(h.tracks))
	copy(out, h.tracks)
	return out
}

// Len returns the number of tracks in the window.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.tracks)
}

// Cap returns the window capacity.
func (h *History) Cap() int {
	if h == nil {
		return 0
	}
	return h.capacity
}
