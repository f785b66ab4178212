package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

// ErrNoConfidentMatch indicates search results did not meet the confidence threshold.
var ErrNoConfidentMatch = errors.New("no confident match")

// NoConfidentMatchError provides context for a failed track match.
type NoConfidentMatchError struct {
	Title  string
	Artist string
}

func (e NoConfidentMatchError) Error() string {
	if e.Title == "" && e.Artist == "" {
		return ErrNoConfidentMatch.Error()
	}
	return fmt.Sprintf("no confident match found for title %q artist %q", e.Title, e.Artist)
}

func (e NoConfidentMatchError) Is(target error) bool {
	return target == ErrNoConfidentMatch
}

// CandidateQuery narrows the tracks a catalog offers for queue building.
type CandidateQuery struct {
	Genres       []string
	Seed         *domain.Track
	TargetEnergy float64
	TempoRange   [2]float64
	Limit        int
}

// TrackCatalog supplies playable tracks with their audio features.
type TrackCatalog interface {
	Candidates(ctx context.Context, q CandidateQuery) ([]domain.Track, error)
	GetTrack(ctx context.Context, id string) (domain.Track, error)
	SearchTrack(ctx context.Context, title, artist string) (domain.Track, error)
}
