package sqlite

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

// RecordPlay stores the track and a play row for the session.
func (a *Adapter) RecordPlay(ctx context.Context, sessionID string, t domain.Track, at time.Time) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertTrack(ctx, tx, t); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO plays (session_id, track_id, played_at) VALUES (?, ?, ?)",
		sessionID, t.ID, at.UTC(),
	); err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// RecordSkip stores the track and a skip row with how much of it was heard.
func (a *Adapter) RecordSkip(ctx context.Context, sessionID string, t domain.Track, playedFraction float64, at time.Time) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertTrack(ctx, tx, t); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO skips (session_id, track_id, played_fraction, skipped_at) VALUES (?, ?, ?, ?)",
		sessionID, t.ID, playedFraction, at.UTC(),
	); err != nil {
		return fmt.Errorf("failed to record skip: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// RecentPlays returns the last limit played tracks across all sessions,
// oldest first so they can be replayed into a history tracker.
func (a *Adapter) RecentPlays(ctx context.Context, limit int) ([]domain.Track, error) {
	if limit <= 0 {
		return []domain.Track{}, nil
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT `+trackColumns+`
		FROM plays p
		JOIN tracks t ON t.id = p.track_id
		ORDER BY p.played_at DESC, p.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent plays: %w", err)
	}
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent play: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recent plays: %w", err)
	}

	slices.Reverse(tracks)
	return tracks, nil
}

// SkipCounts returns how often each of trackIDs was skipped. Tracks never
// skipped are absent from the map.
func (a *Adapter) SkipCounts(ctx context.Context, trackIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(trackIDs) == 0 {
		return counts, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(trackIDs)), ",")
	args := make([]any, len(trackIDs))
	for i, id := range trackIDs {
		args[i] = id
	}

	rows, err := a.db.QueryContext(ctx,
		"SELECT track_id, COUNT(*) FROM skips WHERE track_id IN ("+placeholders+") GROUP BY track_id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load skip counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan skip count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skip counts: %w", err)
	}
	return counts, nil
}
