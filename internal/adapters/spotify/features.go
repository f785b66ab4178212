package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

const (
	featuresBatchSize   = 100
	featuresConcurrency = 4
)

// errFeaturesUnavailable marks responses where Spotify withholds audio
// features (403/404) so callers can fall back to generated ones.
var errFeaturesUnavailable = errors.New("audio features unavailable")

func generateDeterministicFeatures(trackID string) domain.AudioFeatures {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(trackID))
	seed := int64(hasher.Sum32())
	// #nosec G404 -- Deterministic RNG for reproducible audio features, not security-sensitive
	rng := rand.New(rand.NewSource(seed))

	between := func(min, max float64) float64 {
		return min + rng.Float64()*(max-min)
	}

	return domain.AudioFeatures{
		Energy:       domain.Ptr(between(0.1, 0.9)),
		Valence:      domain.Ptr(between(0.1, 0.9)),
		Danceability: domain.Ptr(between(0.1, 0.9)),
		Tempo:        domain.Ptr(between(60.0, 180.0)),
		Key:          domain.Ptr(rng.Intn(12)),
		Mode:         domain.Ptr(domain.Mode(rng.Intn(2))),
	}
}

func allFeaturesZero(features spotifyAudioFeatures) bool {
	return features.Danceability == 0 &&
		features.Energy == 0 &&
		features.Valence == 0 &&
		features.Tempo == 0
}

// getAudioFeatures fetches features for one track.
func (c *Client) getAudioFeatures(ctx context.Context, trackID string) (spotifyAudioFeatures, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s/audio-features/%s", c.baseURL, url.PathEscape(trackID)))
	if err != nil {
		return spotifyAudioFeatures{}, fmt.Errorf("spotify adapter: features request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusNotFound:
		return spotifyAudioFeatures{}, errFeaturesUnavailable
	default:
		return spotifyAudioFeatures{}, fmt.Errorf("spotify adapter: features status %d", resp.StatusCode)
	}

	var features spotifyAudioFeatures
	if err := json.NewDecoder(resp.Body).Decode(&features); err != nil {
		return spotifyAudioFeatures{}, fmt.Errorf("spotify adapter: features decode error: %w", err)
	}
	if allFeaturesZero(features) {
		return spotifyAudioFeatures{}, errFeaturesUnavailable
	}
	return features, nil
}

// getAudioFeaturesBatch fetches features for many tracks, splitting the ids
// into batches of 100 that are requested concurrently.
func (c *Client) getAudioFeaturesBatch(ctx context.Context, trackIDs []string) (map[string]spotifyAudioFeatures, error) {
	result := make(map[string]spotifyAudioFeatures, len(trackIDs))
	if len(trackIDs) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(featuresConcurrency)

	for start := 0; start < len(trackIDs); start += featuresBatchSize {
		batch := trackIDs[start:min(start+featuresBatchSize, len(trackIDs))]
		g.Go(func() error {
			features, err := c.fetchFeaturesBatch(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for id, f := range features {
				result[id] = f
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) fetchFeaturesBatch(ctx context.Context, trackIDs []string) (map[string]spotifyAudioFeatures, error) {
	featuresURL, err := url.Parse(fmt.Sprintf("%s/audio-features", c.baseURL))
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: invalid features url: %w", err)
	}
	query := featuresURL.Query()
	query.Set("ids", strings.Join(trackIDs, ","))
	featuresURL.RawQuery = query.Encode()

	resp, err := c.get(ctx, featuresURL.String())
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: features request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusNotFound:
		return nil, errFeaturesUnavailable
	default:
		return nil, fmt.Errorf("spotify adapter: features status %d", resp.StatusCode)
	}

	var body audioFeaturesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("spotify adapter: features decode error: %w", err)
	}

	result := make(map[string]spotifyAudioFeatures, len(body.AudioFeatures))
	for _, f := range body.AudioFeatures {
		// Spotify returns null entries for tracks it has not analysed.
		if f != nil && f.ID != "" && !allFeaturesZero(*f) {
			result[f.ID] = *f
		}
	}
	return result, nil
}

// withFeatures maps tracks to the domain and attaches their audio features.
// When Spotify withholds features the deterministic fallback fills in; any
// other failure leaves the features absent.
func (c *Client) withFeatures(ctx context.Context, tracks []spotifyTrack) []domain.Track {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}

	features, err := c.getAudioFeaturesBatch(ctx, ids)
	fallback := errors.Is(err, errFeaturesUnavailable)
	if err != nil && !fallback {
		c.logger.Warn("failed to get audio features", "tracks", len(ids), "error", err)
	}

	out := make([]domain.Track, len(tracks))
	for i, st := range tracks {
		if f, ok := features[st.ID]; ok {
			out[i] = mapTrackToDomain(st, &f)
			continue
		}
		out[i] = mapTrackToDomain(st, nil)
		if err == nil || fallback {
			c.logger.Debug("falling back to deterministic features", "track_id", st.ID)
			out[i].Features = generateDeterministicFeatures(st.ID)
		}
	}
	return out
}
