package domain

// EventKind identifies what happened in a session.
type EventKind string

const (
	EventSessionStarted    EventKind = "session_started"
	EventSessionStopped    EventKind = "session_stopped"
	EventTrackQueued       EventKind = "track_queued"
	EventPreferenceLearned EventKind = "preference_learned"
)

// Preference is a learned like or dislike derived from listener behaviour.
type Preference struct {
	Kind    string  `json:"kind"`
	Value   float64 `json:"value"`
	Weight  float64 `json:"weight"`
	Reason  string  `json:"reason"`
	TrackID string  `json:"track_id"`
}

// Event is handed to an event sink; only the fields relevant to Kind are set.
type Event struct {
	Kind       EventKind   `json:"kind"`
	SessionID  string      `json:"session_id"`
	Mode       string      `json:"mode,omitempty"`
	Entry      *QueueEntry `json:"entry,omitempty"`
	Preference *Preference `json:"preference,omitempty"`
}
