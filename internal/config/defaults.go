package config

import (
	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/services"
)

const (
	defaultSpotifyBaseURL  = "https://api.spotify.com/v1"
	defaultSpotifyTokenURL = "https://accounts.spotify.com/api/token"
	defaultOllamaHost      = "http://localhost:11434"
	defaultOllamaModel     = "llama3"
	defaultDBPath          = "conduit-dj.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	bm := services.DefaultBeatMatchConfig()
	q := services.DefaultQueueConfig()
	sess := services.DefaultSessionConfig()

	return Config{
		BeatMatching: BeatMatching{
			BPMTolerance:        bm.BPMTolerance,
			AllowDoubleTempo:    bm.AllowDoubleTempo,
			KeyCompatibility:    bm.KeyCompatibility,
			CamelotStrict:       bm.CamelotStrict,
			AllowRelativeKeys:   bm.AllowRelativeKeys,
			EnergyTransitionMax: bm.EnergyTransitionMax,
			PreferHarmonic:      bm.PreferHarmonic,
			CrossfadeDuration:   bm.CrossfadeDuration,
			OutroDetection:      bm.OutroDetection,
			IntroSkip:           bm.IntroSkip,
		},
		Queue: Queue{
			MinQueueSize:      q.MinQueueSize,
			MaxQueueSize:      q.MaxQueueSize,
			DiversityFactor:   q.DiversityFactor,
			ArtistRepeatLimit: q.ArtistRepeatLimit,
			DiscoveryRatio:    q.DiscoveryRatio,
			LearnFromSkips:    sess.LearnFromSkips,
			SkipThreshold:     sess.SkipThreshold,
			CandidateLimit:    sess.CandidateLimit,
			RespectUserQueue:  sess.RespectUserQueue,
		},
		Modes: defaultModes(),
		Spotify: Spotify{
			BaseURL:        defaultSpotifyBaseURL,
			TokenURL:       defaultSpotifyTokenURL,
			MaxRetries:     3,
			RetryBackoffMs: 500,
			RateLimit:      180,
			TimeoutSeconds: 10,
		},
		Storage: Storage{
			Driver: "sqlite",
			Path:   defaultDBPath,
		},
		Server: Server{
			Addr:                     ":8080",
			ReadHeaderTimeoutSeconds: 15,
			ShutdownTimeoutSeconds:   10,
		},
		Ollama: Ollama{
			Host:           defaultOllamaHost,
			Model:          defaultOllamaModel,
			TimeoutSeconds: 30,
		},
		Worker: Worker{
			Workers:   2,
			QueueSize: 100,
		},
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func defaultModes() map[string]Mode {
	builtin := domain.DefaultModeProfiles()
	out := make(map[string]Mode, len(builtin))
	for name, p := range builtin {
		out[name] = modeFromProfile(p)
	}
	return out
}

func modeFromProfile(p domain.ModeProfile) Mode {
	return Mode{
		TargetEnergy:    domain.Ptr(p.TargetEnergy),
		EnergyVariance:  domain.Ptr(p.EnergyVariance),
		EnergyCurve:     string(p.EnergyCurve),
		TempoRange:      []float64{p.TempoRange[0], p.TempoRange[1]},
		Genres:          append([]string(nil), p.Genres...),
		TransitionStyle: p.TransitionStyle,
	}
}
