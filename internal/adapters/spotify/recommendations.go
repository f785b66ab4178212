package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
)

const (
	maxSeeds             = 5
	defaultCandidates    = 20
	maxCandidates        = 100
	fallbackSeedGenre    = "pop"
	recommendationsRoute = "recommendations"
)

// Candidates returns recommended tracks for queue building, seeded by the
// mode's genres and the current track.
func (c *Client) Candidates(ctx context.Context, q ports.CandidateQuery) ([]domain.Track, error) {
	recURL, err := url.Parse(fmt.Sprintf("%s/%s", c.baseURL, recommendationsRoute))
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: invalid recommendations url: %w", err)
	}
	recURL.RawQuery = c.recommendationParams(q).Encode()

	resp, err := c.get(ctx, recURL.String())
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: recommendations request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify adapter: recommendations status %d", resp.StatusCode)
	}

	var body recommendationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("spotify adapter: recommendations decode error: %w", err)
	}

	tracks := make([]spotifyTrack, 0, len(body.Tracks))
	for _, t := range body.Tracks {
		if t.ID != "" {
			tracks = append(tracks, t)
		}
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	return c.withFeatures(ctx, tracks), nil
}

func (c *Client) recommendationParams(q ports.CandidateQuery) url.Values {
	params := url.Values{}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultCandidates
	}
	params.Set("limit", strconv.Itoa(min(limit, maxCandidates)))

	seeds := 0
	if q.Seed != nil && q.Seed.ID != "" {
		params.Set("seed_tracks", q.Seed.ID)
		seeds++
	}
	genres := make([]string, 0, maxSeeds)
	for _, g := range q.Genres {
		if seeds+len(genres) >= maxSeeds {
			break
		}
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	if seeds == 0 && len(genres) == 0 {
		genres = append(genres, fallbackSeedGenre)
	}
	if len(genres) > 0 {
		params.Set("seed_genres", strings.Join(genres, ","))
	}

	if q.TargetEnergy > 0 {
		params.Set("target_energy", strconv.FormatFloat(q.TargetEnergy, 'f', 2, 64))
	}
	if q.TempoRange[1] > 0 {
		params.Set("min_tempo", strconv.FormatFloat(q.TempoRange[0], 'f', 0, 64))
		params.Set("max_tempo", strconv.FormatFloat(q.TempoRange[1], 'f', 0, 64))
	}
	if c.market != "" {
		params.Set("market", c.market)
	}
	return params
}
