package spotify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
)

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	defaultTimeout  = 10 * time.Second
	maxRateBurst    = 10
)

// Options configures a Client. Zero values fall back to package defaults.
type Options struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
	Market       string
	MaxRetries   int
	RetryBackoff time.Duration
	// RateLimit caps outgoing requests per minute; 0 disables limiting.
	RateLimit  int
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is the Spotify catalog adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	market      string
	maxRetries  int
	baseBackoff time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// compile-time interface assertion
var _ ports.TrackCatalog = (*Client)(nil)

// NewClient constructs a Client. With credentials set, requests carry an
// app token obtained through the client-credentials flow.
func NewClient(opts Options) *Client {
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	plain := *base
	httpClient := &plain
	if opts.ClientID != "" {
		tokenURL := opts.TokenURL
		if tokenURL == "" {
			tokenURL = defaultTokenURL
		}
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     tokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = cc.Client(ctx)
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = timeout
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		market:      opts.Market,
		maxRetries:  opts.MaxRetries,
		baseBackoff: opts.RetryBackoff,
		logger:      logger.With("adapter", "spotify"),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RateLimit)), min(opts.RateLimit, maxRateBurst))
	}
	return c
}
