package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

// SaveSession inserts or updates a session row.
func (a *Adapter) SaveSession(ctx context.Context, s domain.Session) error {
	query := `
		INSERT INTO sessions (
			id, mode, target_energy, status, started_at, stopped_at, tracks_played, tracks_skipped
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			target_energy=excluded.target_energy,
			status=excluded.status,
			stopped_at=excluded.stopped_at,
			tracks_played=excluded.tracks_played,
			tracks_skipped=excluded.tracks_skipped;
	`
	var stopped sql.NullTime
	if s.StoppedAt != nil {
		stopped = sql.NullTime{Time: s.StoppedAt.UTC(), Valid: true}
	}
	if _, err := a.db.ExecContext(
		ctx,
		query,
		s.ID,
		s.Mode,
		s.TargetEnergy,
		string(s.Status),
		s.StartedAt.UTC(),
		stopped,
		s.TracksPlayed,
		s.TracksSkipped,
	); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession loads a session by ID.
func (a *Adapter) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, mode, target_energy, status, started_at, stopped_at, tracks_played, tracks_skipped
		FROM sessions WHERE id = ?
	`, id)

	var (
		s       domain.Session
		status  string
		stopped sql.NullTime
	)
	if err := row.Scan(
		&s.ID,
		&s.Mode,
		&s.TargetEnergy,
		&status,
		&s.StartedAt,
		&stopped,
		&s.TracksPlayed,
		&s.TracksSkipped,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	s.Status = domain.SessionStatus(status)
	if stopped.Valid {
		t := stopped.Time
		s.StoppedAt = &t
	}
	return s, nil
}

// SaveQueue replaces the stored queue of a session.
func (a *Adapter) SaveQueue(ctx context.Context, sessionID string, entries []domain.QueueEntry) error {
	// 1. Start Transaction
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	// 2. Reset the queue
	if _, err := tx.ExecContext(ctx, "DELETE FROM queue_entries WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}

	// 3. Upsert tracks and re-link in playback order
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO queue_entries (session_id, position, track_id, score, reason)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare queue insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if err := upsertTrack(ctx, tx, e.Track); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, sessionID, i, e.Track.ID, e.Score, nullString(e.Reason)); err != nil {
			return fmt.Errorf("failed to queue track %s: %w", e.Track.ID, err)
		}
	}

	// 4. Commit Transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// LoadQueue returns the stored queue of a session in playback order.
func (a *Adapter) LoadQueue(ctx context.Context, sessionID string) ([]domain.QueueEntry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT q.position, q.score, q.reason, `+trackColumns+`
		FROM queue_entries q
		JOIN tracks t ON t.id = q.track_id
		WHERE q.session_id = ?
		ORDER BY q.position ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	defer rows.Close()

	entries := []domain.QueueEntry{}
	for rows.Next() {
		var (
			e      domain.QueueEntry
			reason sql.NullString
		)
		track, err := scanTrack(prefixScanner{rows: rows, prefix: []any{&e.Position, &e.Score, &reason}})
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		e.Track = track
		e.Reason = reason.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue: %w", err)
	}
	return entries, nil
}

// prefixScanner scans leading columns into prefix before the track columns.
type prefixScanner struct {
	rows   *sql.Rows
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append(p.prefix, dest...)...)
}
