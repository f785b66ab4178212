package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jordanpartridge/conduit-dj/internal/adapters/spotify"
	"github.com/jordanpartridge/conduit-dj/internal/config"
	"github.com/jordanpartridge/conduit-dj/internal/logging"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

type commandContext struct {
	configFlag *string
	formatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, formatFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		formatFlag: formatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.formatFlag != nil && *c.formatFlag == formatJSON
}

// logger writes adapter diagnostics to stderr so table and JSON output stay clean.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return slog.New(slog.DiscardHandler)
	}
	logCfg := cfg.Logging
	if logCfg.Level == "info" || logCfg.Level == "debug" {
		logCfg.Level = "warn"
	}
	return logging.NewWriter(cmd.ErrOrStderr(), logCfg)
}

func (c *commandContext) catalog(cmd *cobra.Command) (*spotify.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required (set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET or spotify.client_id/client_secret)")
	}
	return spotify.NewClient(spotify.Options{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		BaseURL:      cfg.Spotify.BaseURL,
		TokenURL:     cfg.Spotify.TokenURL,
		Market:       cfg.Spotify.Market,
		MaxRetries:   cfg.Spotify.MaxRetries,
		RetryBackoff: time.Duration(cfg.Spotify.RetryBackoffMs) * time.Millisecond,
		RateLimit:    cfg.Spotify.RateLimit,
		Timeout:      time.Duration(cfg.Spotify.TimeoutSeconds) * time.Second,
		Logger:       c.logger(cmd),
	}), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
