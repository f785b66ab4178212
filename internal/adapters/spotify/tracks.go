package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

// GetTrack fetches a track by Spotify ID and enriches it with audio features.
func (c *Client) GetTrack(ctx context.Context, id string) (domain.Track, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s/tracks/%s", c.baseURL, url.PathEscape(id)))
	if err != nil {
		return domain.Track{}, fmt.Errorf("spotify adapter: track request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusBadRequest:
		return domain.Track{}, fmt.Errorf("spotify adapter: track %q: %w", id, domain.ErrNotFound)
	default:
		return domain.Track{}, fmt.Errorf("spotify adapter: track status %d", resp.StatusCode)
	}

	var track spotifyTrack
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return domain.Track{}, fmt.Errorf("spotify adapter: track decode error: %w", err)
	}

	mapped := mapTrackToDomain(track, nil)
	features, err := c.getAudioFeatures(ctx, track.ID)
	switch {
	case errors.Is(err, errFeaturesUnavailable):
		c.logger.Warn("falling back to deterministic features", "track_id", track.ID)
		mapped.Features = generateDeterministicFeatures(track.ID)
	case err != nil:
		return domain.Track{}, err
	default:
		mapped.Features = mapFeaturesToDomain(features)
	}
	return mapped, nil
}
