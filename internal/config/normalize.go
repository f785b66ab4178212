package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/services"
)

func (c *Config) normalize() error {
	c.applyEnv()

	c.Spotify.BaseURL = strings.TrimRight(strings.TrimSpace(c.Spotify.BaseURL), "/")
	c.Spotify.ClientID = strings.TrimSpace(c.Spotify.ClientID)
	c.Spotify.ClientSecret = strings.TrimSpace(c.Spotify.ClientSecret)
	c.Ollama.Host = strings.TrimRight(strings.TrimSpace(c.Ollama.Host), "/")
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	if c.Storage.Driver == "sqlite" {
		path, err := expandPath(c.Storage.Path)
		if err != nil {
			return fmt.Errorf("storage.path: %w", err)
		}
		c.Storage.Path = path
	}
	if c.Logging.File != "" {
		path, err := expandPath(c.Logging.File)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = path
	}

	c.normalizeModes()
	return nil
}

// normalizeModes fills unset fields of built-in modes from their defaults,
// gives custom modes the neutral energy settings and lowercases curve names.
func (c *Config) normalizeModes() {
	if c.Modes == nil {
		c.Modes = map[string]Mode{}
	}
	builtin := defaultModes()
	for name, def := range builtin {
		m, ok := c.Modes[name]
		if !ok {
			c.Modes[name] = def
			continue
		}
		if m.TargetEnergy == nil {
			m.TargetEnergy = def.TargetEnergy
		}
		if m.EnergyVariance == nil {
			m.EnergyVariance = def.EnergyVariance
		}
		if m.EnergyCurve == "" {
			m.EnergyCurve = def.EnergyCurve
		}
		if len(m.TempoRange) == 0 {
			m.TempoRange = def.TempoRange
		}
		if len(m.Genres) == 0 {
			m.Genres = def.Genres
		}
		if m.TransitionStyle == "" {
			m.TransitionStyle = def.TransitionStyle
		}
		c.Modes[name] = m
	}
	for name, m := range c.Modes {
		neutral := domain.NeutralProfile(name)
		if m.TargetEnergy == nil {
			m.TargetEnergy = domain.Ptr(neutral.TargetEnergy)
		}
		if m.EnergyVariance == nil {
			m.EnergyVariance = domain.Ptr(neutral.EnergyVariance)
		}
		m.EnergyCurve = strings.ToLower(strings.TrimSpace(m.EnergyCurve))
		if m.EnergyCurve == "" {
			m.EnergyCurve = string(domain.CurveSteady)
		}
		c.Modes[name] = m
	}
}

func (c *Config) applyEnv() {
	if v, ok := lookupEnv("SPOTIFY_CLIENT_ID"); ok {
		c.Spotify.ClientID = v
	}
	if v, ok := lookupEnv("SPOTIFY_CLIENT_SECRET"); ok {
		c.Spotify.ClientSecret = v
	}
	if v, ok := lookupEnvInt("SPOTIFY_MAX_RETRIES"); ok {
		c.Spotify.MaxRetries = v
	}
	if v, ok := lookupEnvInt("SPOTIFY_RETRY_BACKOFF_MS"); ok {
		c.Spotify.RetryBackoffMs = v
	}
	if v, ok := lookupEnv("OLLAMA_HOST"); ok {
		c.Ollama.Host = v
		c.Ollama.Enabled = true
	}
	if v, ok := lookupEnv("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := lookupEnv("CONDUIT_DJ_DB"); ok {
		c.Storage.Path = v
	}
	if v, ok := lookupEnv("PORT"); ok {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// lookupEnvInt ignores values that do not parse; the file or default value stays.
func lookupEnvInt(key string) (int, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// BeatMatch returns the compatibility model settings.
func (c *Config) BeatMatch() services.BeatMatchConfig {
	b := c.BeatMatching
	return services.BeatMatchConfig{
		BPMTolerance:        b.BPMTolerance,
		AllowDoubleTempo:    b.AllowDoubleTempo,
		KeyCompatibility:    b.KeyCompatibility,
		CamelotStrict:       b.CamelotStrict,
		AllowRelativeKeys:   b.AllowRelativeKeys,
		EnergyTransitionMax: b.EnergyTransitionMax,
		PreferHarmonic:      b.PreferHarmonic,
		CrossfadeDuration:   b.CrossfadeDuration,
		OutroDetection:      b.OutroDetection,
		IntroSkip:           b.IntroSkip,
		LegacyModePairing:   b.LegacyModePairing,
	}
}

// QueueConfig returns the queue builder settings, including every mode profile.
func (c *Config) QueueConfig() services.QueueConfig {
	modes := make(map[string]domain.ModeProfile, len(c.Modes))
	for name, m := range c.Modes {
		p := domain.ModeProfile{
			Name:            name,
			TargetEnergy:    derefOr(m.TargetEnergy, domain.NeutralEnergy),
			EnergyVariance:  derefOr(m.EnergyVariance, 0),
			EnergyCurve:     domain.EnergyCurve(m.EnergyCurve),
			Genres:          append([]string(nil), m.Genres...),
			TransitionStyle: m.TransitionStyle,
		}
		if len(m.TempoRange) == 2 {
			p.TempoRange = [2]float64{m.TempoRange[0], m.TempoRange[1]}
		}
		modes[name] = p
	}
	return services.QueueConfig{
		MinQueueSize:      c.Queue.MinQueueSize,
		MaxQueueSize:      c.Queue.MaxQueueSize,
		DiversityFactor:   c.Queue.DiversityFactor,
		ArtistRepeatLimit: c.Queue.ArtistRepeatLimit,
		DiscoveryRatio:    c.Queue.DiscoveryRatio,
		Modes:             modes,
	}
}

// Session returns the session service settings.
func (c *Config) Session() services.SessionConfig {
	return services.SessionConfig{
		LearnFromSkips:   c.Queue.LearnFromSkips,
		SkipThreshold:    c.Queue.SkipThreshold,
		CandidateLimit:   c.Queue.CandidateLimit,
		RespectUserQueue: c.Queue.RespectUserQueue,
	}
}

func derefOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
