package ports

import (
	"context"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

// EventSink receives session events. Implementations must not block for long.
type EventSink interface {
	Publish(ctx context.Context, e domain.Event)
}

// MoodClassifier turns a free-text request ("something to study to") into a DJ mode.
type MoodClassifier interface {
	ClassifyMood(ctx context.Context, prompt string) (domain.MoodIntent, error)
}
