// Package eventlog publishes session events as structured log records.
package eventlog

import (
	"context"
	"log/slog"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
)

// Sink writes every event to a slog.Logger.
type Sink struct {
	logger *slog.Logger
	level  slog.Level
}

// compile-time interface assertion
var _ ports.EventSink = (*Sink)(nil)

// NewSink returns a Sink that logs at level.
func NewSink(logger *slog.Logger, level slog.Level) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger.With("component", "events"), level: level}
}

// Publish implements ports.EventSink.
func (s *Sink) Publish(ctx context.Context, e domain.Event) {
	attrs := []slog.Attr{
		slog.String("kind", string(e.Kind)),
		slog.String("session_id", e.SessionID),
	}
	if e.Mode != "" {
		attrs = append(attrs, slog.String("mode", e.Mode))
	}
	if e.Entry != nil {
		attrs = append(attrs, slog.Group("entry",
			slog.String("track_id", e.Entry.Track.ID),
			slog.String("title", e.Entry.Track.Title),
			slog.String("artist", e.Entry.Track.Artist),
			slog.Int("position", e.Entry.Position),
			slog.Float64("score", e.Entry.Score),
		))
	}
	if p := e.Preference; p != nil {
		attrs = append(attrs, slog.Group("preference",
			slog.String("kind", p.Kind),
			slog.Float64("value", p.Value),
			slog.Float64("weight", p.Weight),
			slog.String("reason", p.Reason),
			slog.String("track_id", p.TrackID),
		))
	}
	s.logger.LogAttrs(ctx, s.level, "session event", attrs...)
}
