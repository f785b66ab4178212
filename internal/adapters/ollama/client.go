// Package ollama provides an adapter for the Ollama LLM service.
// It classifies free-text listening requests by sending them to a local
// Ollama instance and parsing the structured JSON reply into a mood intent.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "deepseek-r1:8b"
	defaultTimeout = 30 * time.Second
)

const systemPromptTemplate = "You are the conduit-dj mood classifier. Translate a listener's request into a DJ mode.\n\nRules:\nModes: choose exactly one of: %s.\nEnergy: target_energy is 0.0 to 1.0; omit it when the request gives no hint.\nOutput: Return ONLY a valid JSON object with keys mode, target_energy and explanation. No conversational text.\nExample: 'something to study to' -> {\"mode\": \"focus\", \"target_energy\": 0.4, \"explanation\": \"calm, steady background\"}"

// Options configures a Client. Zero values fall back to package defaults.
type Options struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Modes      []string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is the Ollama mood classifier.
type Client struct {
	baseURL      string
	model        string
	systemPrompt string
	httpClient   *http.Client
	logger       *slog.Logger
}

// compile-time interface assertion
var _ ports.MoodClassifier = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// NewClient constructs a Client.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	modes := slices.Clone(opts.Modes)
	if len(modes) == 0 {
		for name := range domain.DefaultModeProfiles() {
			modes = append(modes, name)
		}
	}
	slices.Sort(modes)

	return &Client{
		baseURL:      baseURL,
		model:        model,
		systemPrompt: fmt.Sprintf(systemPromptTemplate, strings.Join(modes, ", ")),
		httpClient:   httpClient,
		logger:       logger.With("adapter", "ollama"),
	}
}

// ClassifyMood asks the model which mode fits prompt. The returned mode is
// normalised but not validated; callers decide what to do with unknown modes.
func (c *Client) ClassifyMood(ctx context.Context, prompt string) (domain.MoodIntent, error) {
	payload := chatRequest{
		Model:  c.model,
		Stream: false,
		Format: "json",
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.MoodIntent{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return domain.MoodIntent{}, fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.MoodIntent{}, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.MoodIntent{}, fmt.Errorf("ollama: unexpected status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.MoodIntent{}, fmt.Errorf("ollama: decode response: %w", err)
	}
	if parsed.Error != "" {
		return domain.MoodIntent{}, fmt.Errorf("ollama: %s", parsed.Error)
	}

	content := extractJSON(parsed.Message.Content)
	if content == "" {
		return domain.MoodIntent{}, fmt.Errorf("ollama: empty response")
	}

	var intent domain.MoodIntent
	if err := json.Unmarshal([]byte(content), &intent); err != nil {
		return domain.MoodIntent{}, fmt.Errorf("ollama: decode intent: %w", err)
	}
	intent.Mode = strings.ToLower(strings.TrimSpace(intent.Mode))

	c.logger.Debug("mood classified", "mode", intent.Mode, "elapsed", time.Since(start))
	return intent, nil
}

// extractJSON strips reasoning blocks and code fences that some models wrap
// around their answer.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if end := strings.LastIndex(s, "</think>"); end != -1 {
		s = strings.TrimSpace(s[end+len("</think>"):])
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
