package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
)

const searchLimit = 5

// SearchTrack finds the best match for title and artist among the top search
// results and returns it with audio features. Weak matches are rejected with
// ports.NoConfidentMatchError.
func (c *Client) SearchTrack(ctx context.Context, title string, artist string) (domain.Track, error) {
	track, err := c.searchTrack(ctx, title, artist)
	if err != nil {
		return domain.Track{}, err
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

func (c *Client) searchTrack(ctx context.Context, title string, artist string) (spotifyTrack, error) {
	searchURL, err := url.Parse(fmt.Sprintf("%s/search", c.baseURL))
	if err != nil {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: invalid search url: %w", err)
	}

	queryTitle := fallbackIfEmpty(normalizeSearchInput(title), title)
	queryArtist := fallbackIfEmpty(normalizeSearchInput(artist), artist)

	query := searchURL.Query()
	query.Set("q", fmt.Sprintf("track:%s artist:%s", queryTitle, queryArtist))
	query.Set("type", "track")
	query.Set("limit", fmt.Sprint(searchLimit))
	if c.market != "" {
		query.Set("market", c.market)
	}
	searchURL.RawQuery = query.Encode()

	c.logger.Debug("search request", "url", searchURL.String())

	searchResp, err := c.get(ctx, searchURL.String())
	if err != nil {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: search request failed: %w", err)
	}
	defer searchResp.Body.Close()

	if searchResp.StatusCode != http.StatusOK {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: search status %d", searchResp.StatusCode)
	}

	var searchBody searchResponse
	if err := json.NewDecoder(searchResp.Body).Decode(&searchBody); err != nil {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: search decode error: %w", err)
	}

	items := searchBody.Tracks.Items
	if len(items) > searchLimit {
		items = items[:searchLimit]
	}

	bestScore := 0.0
	bestIndex := -1
	for i, candidate := range items {
		candidateArtist := joinArtistNames(candidate)
		score := ScoreResult(artist, title, candidateArtist, candidate.Name)
		c.logger.Debug("search candidate", "artist", candidateArtist, "title", candidate.Name, "score", score)
		if score >= searchMatchThreshold && score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex == -1 {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: %w", ports.NoConfidentMatchError{Title: title, Artist: artist})
	}

	return items[bestIndex], nil
}
