package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

const trackColumns = `t.id, t.title, t.artist, t.album, t.duration_ms, t.isrc,
	t.tempo, t.energy, t.danceability, t.valence, t.musical_key, t.mode`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

// upsertTrack stores track metadata. Features only overwrite stored values
// when present, so a track seen without analysis keeps what was backfilled.
func upsertTrack(ctx context.Context, db execer, t domain.Track) error {
	query := `
		INSERT INTO tracks (
			id, title, artist, album, duration_ms, isrc,
			tempo, energy, danceability, valence, musical_key, mode
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			artist=excluded.artist,
			album=COALESCE(excluded.album, tracks.album),
			duration_ms=COALESCE(excluded.duration_ms, tracks.duration_ms),
			isrc=COALESCE(excluded.isrc, tracks.isrc),
			tempo=COALESCE(excluded.tempo, tracks.tempo),
			energy=COALESCE(excluded.energy, tracks.energy),
			danceability=COALESCE(excluded.danceability, tracks.danceability),
			valence=COALESCE(excluded.valence, tracks.valence),
			musical_key=COALESCE(excluded.musical_key, tracks.musical_key),
			mode=COALESCE(excluded.mode, tracks.mode);
	`
	f := t.Features
	if _, err := db.ExecContext(
		ctx,
		query,
		t.ID,
		t.Title,
		t.Artist,
		nullString(t.Album),
		nullInt(t.DurationMs),
		nullString(t.ISRC),
		nullFloat(f.Tempo),
		nullFloat(f.Energy),
		nullFloat(f.Danceability),
		nullFloat(f.Valence),
		nullKey(f.Key),
		nullMode(f.Mode),
	); err != nil {
		return fmt.Errorf("failed to save track %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTrackFeatures replaces the analysis of a stored track. Absent
// features are written as NULL.
func (a *Adapter) UpdateTrackFeatures(ctx context.Context, trackID string, features domain.AudioFeatures) error {
	query := `
		UPDATE tracks
		SET
			tempo = ?,
			energy = ?,
			danceability = ?,
			valence = ?,
			musical_key = ?,
			mode = ?
		WHERE id = ?
	`
	res, err := a.db.ExecContext(
		ctx,
		query,
		nullFloat(features.Tempo),
		nullFloat(features.Energy),
		nullFloat(features.Danceability),
		nullFloat(features.Valence),
		nullKey(features.Key),
		nullMode(features.Mode),
		trackID,
	)
	if err != nil {
		return fmt.Errorf("failed to update track features: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("track %q: %w", trackID, domain.ErrNotFound)
	}

	return nil
}

// GetTrack loads a stored track.
func (a *Adapter) GetTrack(ctx context.Context, id string) (domain.Track, error) {
	row := a.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM tracks t WHERE t.id = ?", id)
	track, err := scanTrack(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Track{}, domain.ErrNotFound
		}
		return domain.Track{}, fmt.Errorf("failed to load track: %w", err)
	}
	return track, nil
}

func scanTrack(row scanner) (domain.Track, error) {
	var (
		track        domain.Track
		album        sql.NullString
		duration     sql.NullInt64
		isrc         sql.NullString
		tempo        sql.NullFloat64
		energy       sql.NullFloat64
		danceability sql.NullFloat64
		valence      sql.NullFloat64
		key          sql.NullInt64
		mode         sql.NullInt64
	)
	if err := row.Scan(
		&track.ID,
		&track.Title,
		&track.Artist,
		&album,
		&duration,
		&isrc,
		&tempo,
		&energy,
		&danceability,
		&valence,
		&key,
		&mode,
	); err != nil {
		return domain.Track{}, err
	}

	track.Album = album.String
	track.DurationMs = int(duration.Int64)
	track.ISRC = isrc.String
	if tempo.Valid {
		track.Features.Tempo = domain.Ptr(tempo.Float64)
	}
	if energy.Valid {
		track.Features.Energy = domain.Ptr(energy.Float64)
	}
	if danceability.Valid {
		track.Features.Danceability = domain.Ptr(danceability.Float64)
	}
	if valence.Valid {
		track.Features.Valence = domain.Ptr(valence.Float64)
	}
	if key.Valid {
		track.Features.Key = domain.Ptr(int(key.Int64))
	}
	if mode.Valid {
		track.Features.Mode = domain.Ptr(domain.Mode(mode.Int64))
	}
	return track, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullKey(k *int) sql.NullInt64 {
	if k == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*k), Valid: true}
}

func nullMode(m *domain.Mode) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*m), Valid: true}
}
