package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBeatMatching(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateModes(); err != nil {
		return err
	}
	if err := c.validateSpotify(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBeatMatching() error {
	b := c.BeatMatching
	if b.BPMTolerance <= 0 || b.BPMTolerance > 1 {
		return errors.New("beatmatching.bpm_tolerance must be greater than 0 and at most 1")
	}
	if !unit(b.EnergyTransitionMax) {
		return errors.New("beatmatching.energy_transition_max must be between 0 and 1")
	}
	if b.CrossfadeDuration < 2 {
		return errors.New("beatmatching.crossfade_duration must be at least 2 seconds")
	}
	return nil
}

func (c *Config) validateQueue() error {
	q := c.Queue
	if q.MinQueueSize < 1 {
		return errors.New("queue.min_queue_size must be at least 1")
	}
	if q.MaxQueueSize < q.MinQueueSize {
		return errors.New("queue.max_queue_size must not be smaller than queue.min_queue_size")
	}
	if !unit(q.DiversityFactor) {
		return errors.New("queue.diversity_factor must be between 0 and 1")
	}
	if q.ArtistRepeatLimit < 1 {
		return errors.New("queue.artist_repeat_limit must be at least 1")
	}
	if !unit(q.DiscoveryRatio) {
		return errors.New("queue.discovery_ratio must be between 0 and 1")
	}
	if !unit(q.SkipThreshold) {
		return errors.New("queue.skip_threshold must be between 0 and 1")
	}
	if q.CandidateLimit < 1 {
		return errors.New("queue.candidate_limit must be at least 1")
	}
	return nil
}

func (c *Config) validateModes() error {
	names := make([]string, 0, len(c.Modes))
	for name := range c.Modes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := c.Modes[name]
		if name == "" {
			return errors.New("modes: mode name must not be empty")
		}
		if m.TargetEnergy == nil || !unit(*m.TargetEnergy) {
			return fmt.Errorf("modes.%s.target_energy must be between 0 and 1", name)
		}
		if m.EnergyVariance == nil || !unit(*m.EnergyVariance) {
			return fmt.Errorf("modes.%s.energy_variance must be between 0 and 1", name)
		}
		if !domain.EnergyCurve(m.EnergyCurve).Valid() {
			return fmt.Errorf("modes.%s.energy_curve %q must be steady, ascending or wave", name, m.EnergyCurve)
		}
		switch len(m.TempoRange) {
		case 0:
		case 2:
			if m.TempoRange[0] < 0 || m.TempoRange[0] > m.TempoRange[1] {
				return fmt.Errorf("modes.%s.tempo_range must be [low, high] with 0 <= low <= high", name)
			}
		default:
			return fmt.Errorf("modes.%s.tempo_range must have exactly two values", name)
		}
	}
	return nil
}

func (c *Config) validateSpotify() error {
	s := c.Spotify
	if s.BaseURL == "" {
		return errors.New("spotify.base_url must be set")
	}
	if s.MaxRetries < 0 {
		return errors.New("spotify.max_retries must not be negative")
	}
	if s.RetryBackoffMs < 0 {
		return errors.New("spotify.retry_backoff_ms must not be negative")
	}
	if s.RateLimit < 0 {
		return errors.New("spotify.rate_limit must not be negative")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return errors.New("storage.path must be set for the sqlite driver")
		}
		return nil
	default:
		return fmt.Errorf("storage.driver %q is not supported (use sqlite)", c.Storage.Driver)
	}
}

func (c *Config) validateWorker() error {
	if c.Worker.Workers < 1 {
		return errors.New("worker.workers must be at least 1")
	}
	if c.Worker.QueueSize < 1 {
		return errors.New("worker.queue_size must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
