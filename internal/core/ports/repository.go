package ports

import (
	"context"
	"time"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

// SessionRepository persists sessions, their queues and listening history.
type SessionRepository interface {
	SaveSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	SaveQueue(ctx context.Context, sessionID string, entries []domain.QueueEntry) error
	LoadQueue(ctx context.Context, sessionID string) ([]domain.QueueEntry, error)
	RecordPlay(ctx context.Context, sessionID string, t domain.Track, at time.Time) error
	RecordSkip(ctx context.Context, sessionID string, t domain.Track, playedFraction float64, at time.Time) error
	RecentPlays(ctx context.Context, limit int) ([]domain.Track, error)
	SkipCounts(ctx context.Context, trackIDs []string) (map[string]int, error)
	UpdateTrackFeatures(ctx context.Context, trackID string, features domain.AudioFeatures) error
}
