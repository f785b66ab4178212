package spotify

import (
	"strings"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

// mapTrackToDomain converts a raw Spotify track to a domain track.
// features can be nil when Spotify had none; the track then carries no analysis.
func mapTrackToDomain(st spotifyTrack, features *spotifyAudioFeatures) domain.Track {
	// 1. Flatten Artists (List -> String)
	artistNames := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		artistNames = append(artistNames, a.Name)
	}

	// 2. Map Basic Metadata
	dt := domain.Track{
		ID:         st.ID,
		Title:      st.Name,
		Artist:     strings.Join(artistNames, ", "),
		Album:      st.Album.Name,
		DurationMs: st.DurationMs,
		ISRC:       st.ExternalIDs.ISRC,
	}

	// 3. Map Features (if provided)
	if features != nil {
		dt.Features = mapFeaturesToDomain(*features)
	}

	return dt
}

func mapFeaturesToDomain(f spotifyAudioFeatures) domain.AudioFeatures {
	out := domain.AudioFeatures{
		Danceability: domain.Ptr(f.Danceability),
		Energy:       domain.Ptr(f.Energy),
		Valence:      domain.Ptr(f.Valence),
		Mode:         domain.Ptr(domain.Mode(f.Mode)),
	}
	if f.Tempo > 0 {
		out.Tempo = domain.Ptr(f.Tempo)
	}
	if f.Key >= 0 && f.Key <= 11 {
		out.Key = domain.Ptr(f.Key)
	}
	return out
}
