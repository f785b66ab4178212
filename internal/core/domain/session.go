package domain

import "time"

// SessionStatus is the lifecycle state of a DJ session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionStopped SessionStatus = "stopped"
)

// Session is one DJ run: a mode, an energy target and what happened during it.
type Session struct {
	ID            string        `json:"id"`
	Mode          string        `json:"mode"`
	TargetEnergy  float64       `json:"target_energy"`
	Status        SessionStatus `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	StoppedAt     *time.Time    `json:"stopped_at,omitempty"`
	TracksPlayed  int           `json:"tracks_played"`
	TracksSkipped int           `json:"tracks_skipped"`
}

// MoodIntent is what a mood classifier extracted from a free-text request.
type MoodIntent struct {
	Mode         string   `json:"mode"`
	TargetEnergy *float64 `json:"target_energy,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}
