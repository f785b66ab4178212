package domain

import "errors"

var (
	ErrDuplicateTrack  = errors.New("domain: duplicate track")
	ErrInvalidPosition = errors.New("domain: invalid queue position")
	ErrNotFound        = errors.New("domain: not found")
)

// QueueEntry is a queued track plus the score that justified its selection.
type QueueEntry struct {
	Track    Track   `json:"track"`
	Position int     `json:"position"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason,omitempty"`
}

// Queue is an ordered playback queue. Insertion order is playback order and
// positions are kept contiguous from zero.
type Queue struct {
	entries []QueueEntry
}

// NewQueue builds a queue from entries, renumbering their positions.
func NewQueue(entries []QueueEntry) *Queue {
	q := &Queue{entries: make([]QueueEntry, 0, len(entries))}
	q.entries = append(q.entries, entries...)
	q.renumber()
	return q
}

// Append adds a track to the end of the queue. A track whose ID is already
// queued is rejected with ErrDuplicateTrack.
func (q *Queue) Append(t Track, score float64, reason string) error {
	if q.Contains(t.ID) {
		return ErrDuplicateTrack
	}
	q.entries = append(q.entries, QueueEntry{Track: t, Position: len(q.entries), Score: score, Reason: reason})
	return nil
}

// Insert splices a track in at index; index == Len() appends.
func (q *Queue) Insert(index int, t Track, score float64, reason string) error {
	if index < 0 || index > len(q.entries) {
		return ErrInvalidPosition
	}
	if q.Contains(t.ID) {
		return ErrDuplicateTrack
	}
	q.entries = append(q.entries, QueueEntry{})
	copy(q.entries[index+1:], q.entries[index:])
	q.entries[index] = QueueEntry{Track: t, Score: score, Reason: reason}
	q.renumber()
	return nil
}

// Remove drops the entry for trackID and reports whether it was queued.
func (q *Queue) Remove(trackID string) bool {
	removed := q.RemoveWhere(func(e QueueEntry) bool { return e.Track.ID == trackID })
	return removed > 0
}

// RemoveWhere drops every entry matching pred and returns how many were removed.
func (q *Queue) RemoveWhere(pred func(QueueEntry) bool) int {
	kept := q.entries[:0]
	removed := 0
	for _, e := range q.entries {
		if pred(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	q.renumber()
	return removed
}

// Contains reports whether trackID is queued.
func (q *Queue) Contains(trackID string) bool {
	for _, e := range q.entries {
		if e.Track.ID == trackID {
			return true
		}
	}
	return false
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.entries = nil
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns a copy of the queued entries.
func (q *Queue) Entries() []QueueEntry {
	out := make([]QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Tracks returns the queued tracks in playback order.
func (q *Queue) Tracks() []Track {
	out := make([]Track, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.Track
	}
	return out
}

func (q *Queue) renumber() {
	for i := range q.entries {
		q.entries[i].Position = i
	}
}
