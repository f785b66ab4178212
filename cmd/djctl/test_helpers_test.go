package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

// writeTestConfig points the Spotify adapter at baseURL and keeps the
// database inside the test's temp dir.
func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf(`[spotify]
client_id = "id"
client_secret = "top-secret"
base_url = %q
token_url = %q
max_retries = 0
rate_limit = 0

[storage]
driver = "sqlite"
path = %q
`, baseURL, baseURL+"/token", filepath.Join(dir, "dj.db"))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// fakeSpotify serves the token, track, recommendation and audio feature endpoints.
func fakeSpotify(t *testing.T) *httptest.Server {
	t.Helper()
	track := func(id, name, artist string) string {
		return fmt.Sprintf(`{"id":%q,"name":%q,"duration_ms":200000,"artists":[{"name":%q}],"album":{"name":"Album"}}`, id, name, artist)
	}
	features := map[string]string{
		"t1": `{"id":"t1","energy":0.80,"valence":0.5,"danceability":0.7,"tempo":124,"key":9,"mode":0}`,
		"t2": `{"id":"t2","energy":0.82,"valence":0.5,"danceability":0.7,"tempo":125,"key":4,"mode":0}`,
		"t3": `{"id":"t3","energy":0.78,"valence":0.5,"danceability":0.7,"tempo":126,"key":2,"mode":0}`,
	}
	names := map[string][2]string{
		"t1": {"First", "Artist One"},
		"t2": {"Second", "Artist Two"},
		"t3": {"Third", "Artist Three"},
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/token":
			fmt.Fprint(w, `{"access_token":"token","token_type":"bearer","expires_in":3600}`)
		case r.URL.Path == "/recommendations":
			fmt.Fprintf(w, `{"tracks":[%s,%s,%s]}`,
				track("t1", "First", "Artist One"),
				track("t2", "Second", "Artist Two"),
				track("t3", "Third", "Artist Three"))
		case r.URL.Path == "/audio-features":
			ids := strings.Split(r.URL.Query().Get("ids"), ",")
			parts := make([]string, 0, len(ids))
			for _, id := range ids {
				if f, ok := features[id]; ok {
					parts = append(parts, f)
				} else {
					parts = append(parts, "null")
				}
			}
			fmt.Fprintf(w, `{"audio_features":[%s]}`, strings.Join(parts, ","))
		case strings.HasPrefix(r.URL.Path, "/audio-features/"):
			f, ok := features[strings.TrimPrefix(r.URL.Path, "/audio-features/")]
			if !ok {
				http.Error(w, `{"error":{"status":404}}`, http.StatusNotFound)
				return
			}
			fmt.Fprint(w, f)
		case strings.HasPrefix(r.URL.Path, "/tracks/"):
			id := strings.TrimPrefix(r.URL.Path, "/tracks/")
			n, ok := names[id]
			if !ok {
				http.Error(w, `{"error":{"status":404}}`, http.StatusNotFound)
				return
			}
			fmt.Fprint(w, track(id, n[0], n[1]))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}
