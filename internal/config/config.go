package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// BeatMatching contains the pairwise mixing rules.
type BeatMatching struct {
	BPMTolerance        float64 `toml:"bpm_tolerance"`
	AllowDoubleTempo    bool    `toml:"allow_double_tempo"`
	KeyCompatibility    bool    `toml:"key_compatibility"`
	CamelotStrict       bool    `toml:"camelot_strict"`
	AllowRelativeKeys   bool    `toml:"allow_relative_keys"`
	EnergyTransitionMax float64 `toml:"energy_transition_max"`
	PreferHarmonic      bool    `toml:"prefer_harmonic"`
	CrossfadeDuration   int     `toml:"crossfade_duration"`
	OutroDetection      bool    `toml:"outro_detection"`
	IntroSkip           bool    `toml:"intro_skip"`
	LegacyModePairing   bool    `toml:"legacy_mode_pairing"`
}

// Queue contains queue building and skip learning settings.
type Queue struct {
	MinQueueSize      int     `toml:"min_queue_size"`
	MaxQueueSize      int     `toml:"max_queue_size"`
	DiversityFactor   float64 `toml:"diversity_factor"`
	ArtistRepeatLimit int     `toml:"artist_repeat_limit"`
	DiscoveryRatio    float64 `toml:"discovery_ratio"`
	LearnFromSkips    bool    `toml:"learn_from_skips"`
	SkipThreshold     float64 `toml:"skip_threshold"`
	CandidateLimit    int     `toml:"candidate_limit"`
	RespectUserQueue  bool    `toml:"respect_user_queue"`
}

// Mode is one [modes.<name>] table. Unset fields of a built-in mode inherit
// the built-in value; an explicit 0 is kept.
type Mode struct {
	TargetEnergy    *float64  `toml:"target_energy"`
	EnergyVariance  *float64  `toml:"energy_variance"`
	EnergyCurve     string    `toml:"energy_curve"`
	TempoRange      []float64 `toml:"tempo_range"`
	Genres          []string  `toml:"genres"`
	TransitionStyle string    `toml:"transition_style"`
}

// Spotify contains catalog API settings.
type Spotify struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	BaseURL        string `toml:"base_url"`
	TokenURL       string `toml:"token_url"`
	Market         string `toml:"market"`
	MaxRetries     int    `toml:"max_retries"`
	RetryBackoffMs int    `toml:"retry_backoff_ms"`
	RateLimit      int    `toml:"rate_limit"` // requests per minute, 0 disables
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Storage selects the session repository.
type Storage struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// Server contains HTTP listener settings.
type Server struct {
	Addr                     string `toml:"addr"`
	ReadHeaderTimeoutSeconds int    `toml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int    `toml:"shutdown_timeout_seconds"`
}

// Ollama contains mood classifier settings.
type Ollama struct {
	Enabled        bool   `toml:"enabled"`
	Host           string `toml:"host"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Worker contains feature backfill pool settings.
type Worker struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// Logging contains log output settings. File enables rotation through
// lumberjack in addition to stdout.
type Logging struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for conduit-dj.
type Config struct {
	BeatMatching BeatMatching    `toml:"beatmatching"`
	Queue        Queue           `toml:"queue"`
	Modes        map[string]Mode `toml:"modes"`
	Spotify      Spotify         `toml:"spotify"`
	Storage      Storage         `toml:"storage"`
	Server       Server          `toml:"server"`
	Ollama       Ollama          `toml:"ollama"`
	Worker       Worker          `toml:"worker"`
	Logging      Logging         `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/conduit-dj/config.toml")
}

// Load locates, parses, and validates a configuration file. An empty path
// falls back to $CONDUIT_DJ_CONFIG, then the default locations. A missing
// file is not an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("CONDUIT_DJ_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("conduit-dj.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// Redacted returns a copy safe to print, with secrets masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Spotify.ClientSecret != "" {
		out.Spotify.ClientSecret = "********"
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" || pathValue == ":memory:" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}
