package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jordanpartridge/conduit-dj/internal/adapters/sqlite"
	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
	"github.com/jordanpartridge/conduit-dj/internal/core/services"
)

// --- Mocks ---

type mockCatalog struct {
	pool      []domain.Track
	searchErr error
}

func (m *mockCatalog) Candidates(ctx context.Context, q ports.CandidateQuery) ([]domain.Track, error) {
	return append([]domain.Track(nil), m.pool...), nil
}

func (m *mockCatalog) GetTrack(ctx context.Context, id string) (domain.Track, error) {
	for _, t := range m.pool {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Track{}, domain.ErrNotFound
}

func (m *mockCatalog) SearchTrack(ctx context.Context, title, artist string) (domain.Track, error) {
	if m.searchErr != nil {
		return domain.Track{}, m.searchErr
	}
	return domain.Track{ID: "found", Title: title, Artist: artist}, nil
}

type mockBackfill struct {
	mu  sync.Mutex
	ids []string
}

func (m *mockBackfill) Backfill(trackID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, trackID)
	return true
}

// --- Helpers ---

func track(id string, tempo float64, key int, energy float64) domain.Track {
	return domain.Track{
		ID:         id,
		Title:      "Song " + id,
		Artist:     "Artist " + id,
		DurationMs: 200000,
		Features: domain.AudioFeatures{
			Tempo:  domain.Ptr(tempo),
			Energy: domain.Ptr(energy),
			Key:    domain.Ptr(key),
			Mode:   domain.Ptr(domain.Major),
		},
	}
}

func testPool(n int) []domain.Track {
	pool := make([]domain.Track, n)
	for i := range pool {
		pool[i] = track(fmt.Sprintf("t%d", i), 124+float64(i), i%12, 0.6+0.03*float64(i))
	}
	return pool
}

type testEnv struct {
	handler  *Handler
	catalog  *mockCatalog
	backfill *mockBackfill
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := sqlite.NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	matcher := services.NewBeatMatcher(services.DefaultBeatMatchConfig())
	builder := services.NewQueueBuilder(matcher, services.DefaultQueueConfig())
	catalog := &mockCatalog{pool: testPool(10)}
	backfill := &mockBackfill{}

	sessions := services.NewSessionService(services.SessionDeps{
		Catalog: catalog,
		Repo:    repo,
		Matcher: matcher,
		Builder: builder,
		Config:  services.DefaultSessionConfig(),
		Logger:  logger,
	})

	h := NewHandler(Deps{
		Sessions: sessions,
		Matcher:  matcher,
		Builder:  builder,
		Catalog:  catalog,
		Backfill: backfill,
		Logger:   logger,
	})
	return &testEnv{handler: h, catalog: catalog, backfill: backfill}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// --- Tests ---

func TestHandler_HealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestHandler_Compatibility(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		contentType    string
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "Success: same key beatmatch",
			body: compatibilityRequest{
				From: domain.Ptr(track("a", 128, 0, 0.7)),
				To:   domain.Ptr(track("b", 128, 0, 0.7)),
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"technique":"beatmatch"`,
		},
		{
			name:           "Bad Request: missing tracks",
			body:           map[string]any{"from": track("a", 128, 0, 0.7)},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "from and to tracks are required",
		},
		{
			name:           "Bad Request: malformed json",
			body:           `{invalid-json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid request body",
		},
		{
			name:           "Unsupported Media Type",
			body:           `{}`,
			contentType:    "text/plain",
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedBody:   `"code":"UNSUPPORTED_MEDIA_TYPE"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			var raw []byte
			if s, ok := tt.body.(string); ok {
				raw = []byte(s)
			} else {
				raw, _ = json.Marshal(tt.body)
			}
			req := httptest.NewRequest(http.MethodPost, "/compatibility", bytes.NewBuffer(raw))
			ct := tt.contentType
			if ct == "" {
				ct = "application/json; charset=utf-8"
			}
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()

			env.handler.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_BuildQueue(t *testing.T) {
	tests := []struct {
		name           string
		body           buildQueueRequest
		expectedStatus int
		wantEntries    int
		wantStop       services.StopReason
		notQueued      string
	}{
		{
			name:           "Success: fills requested size",
			body:           buildQueueRequest{Candidates: testPool(8), Size: 5, Mode: "party"},
			expectedStatus: http.StatusOK,
			wantEntries:    5,
			wantStop:       services.StopFilled,
		},
		{
			name: "Success: playing track is not queued again",
			body: buildQueueRequest{
				Candidates:   testPool(8),
				Size:         5,
				Mode:         "party",
				CurrentTrack: domain.Ptr(testPool(8)[2]),
			},
			expectedStatus: http.StatusOK,
			wantEntries:    5,
			wantStop:       services.StopFilled,
			notQueued:      "t2",
		},
		{
			name:           "Success: playing track was the only candidate",
			body:           buildQueueRequest{Candidates: testPool(1), Size: 3, CurrentTrack: domain.Ptr(testPool(1)[0])},
			expectedStatus: http.StatusOK,
			wantEntries:    0,
			wantStop:       services.StopNoCandidates,
			notQueued:      "t0",
		},
		{
			name:           "Success: empty pool is not an error",
			body:           buildQueueRequest{Size: 5},
			expectedStatus: http.StatusOK,
			wantEntries:    0,
			wantStop:       services.StopNoCandidates,
		},
		{
			name:           "Success: small pool runs out",
			body:           buildQueueRequest{Candidates: testPool(3), Size: 5, History: testPool(3)[:1]},
			expectedStatus: http.StatusOK,
			wantEntries:    3,
			wantStop:       services.StopPoolExhausted,
		},
		{
			name:           "Bad Request: energy out of range",
			body:           buildQueueRequest{Candidates: testPool(3), TargetEnergy: domain.Ptr(1.5)},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/queue/build", tt.body)
			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			got := decode[services.BuildResult](t, rec)
			if len(got.Entries) != tt.wantEntries {
				t.Errorf("entries: got %d, want %d", len(got.Entries), tt.wantEntries)
			}
			if got.Stop != tt.wantStop {
				t.Errorf("stop: got %s, want %s", got.Stop, tt.wantStop)
			}
			for _, e := range got.Entries {
				if tt.notQueued != "" && e.Track.ID == tt.notQueued {
					t.Errorf("track %s should not be queued", tt.notQueued)
				}
			}
		})
	}
}

func TestHandler_OptimizeTracks(t *testing.T) {
	env := newTestEnv(t)
	tracks := []domain.Track{track("a", 128, 0, 0.7), track("far", 90, 6, 0.2), track("near", 128, 0, 0.7)}

	rec := env.do(t, http.MethodPost, "/queue/optimize", optimizeRequest{Tracks: tracks})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[optimizeResponse](t, rec)
	if len(got.Tracks) != 3 || got.Tracks[0].ID != "a" || got.Tracks[1].ID != "near" {
		t.Fatalf("unexpected order: %+v", got.Tracks)
	}
}

func TestHandler_SearchTrack(t *testing.T) {
	tests := []struct {
		name           string
		body           searchTrackRequest
		searchErr      error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Success: returns track",
			body:           searchTrackRequest{Title: "Kerala", Artist: "Bonobo"},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":"found"`,
		},
		{
			name:           "Bad Request: missing fields",
			body:           searchTrackRequest{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "title and artist are required",
		},
		{
			name:           "Unprocessable: no confident match",
			body:           searchTrackRequest{Title: "Kerala", Artist: "Bonobo"},
			searchErr:      fmt.Errorf("spotify adapter: %w", ports.NoConfidentMatchError{Title: "Kerala", Artist: "Bonobo"}),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"code":"NO_CONFIDENT_MATCH"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.catalog.searchErr = tt.searchErr
			rec := env.do(t, http.MethodPost, "/tracks/search", tt.body)
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_SessionRequired(t *testing.T) {
	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/sessions/current", nil},
		{http.MethodDelete, "/sessions/current", nil},
		{http.MethodGet, "/sessions/current/queue", nil},
		{http.MethodPost, "/sessions/current/queue/optimize", nil},
		{http.MethodPost, "/sessions/current/queue/rebuild", nil},
		{http.MethodPost, "/sessions/current/track-changed", trackChangedRequest{Track: domain.Ptr(track("a", 120, 1, 0.5))}},
		{http.MethodPost, "/sessions/current/track-skipped", trackSkippedRequest{Track: domain.Ptr(track("a", 120, 1, 0.5)), PlayedMs: 1000}},
		{http.MethodPost, "/sessions/current/analyze", analyzeRequest{Track: domain.Ptr(track("a", 120, 1, 0.5))}},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, tt.method, tt.path, tt.body)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected status 404, got %d: %s", rec.Code, rec.Body.String())
			}
			got := decode[errorResponse](t, rec)
			if got.Code != errCodeNoActiveSession {
				t.Fatalf("code: got %s, want %s", got.Code, errCodeNoActiveSession)
			}
		})
	}
}

func TestHandler_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// 1. Start
	rec := env.do(t, http.MethodPost, "/sessions", startSessionRequest{Mode: "party"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	started := decode[sessionResponse](t, rec)
	if started.Session.Mode != "party" || started.Session.Status != domain.SessionActive {
		t.Fatalf("unexpected session: %+v", started.Session)
	}
	if len(started.Queue) != 5 {
		t.Fatalf("initial queue: got %d entries, want 5", len(started.Queue))
	}

	// 2. Current
	rec = env.do(t, http.MethodGet, "/sessions/current", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), started.Session.ID) {
		t.Fatalf("current: got %d %s", rec.Code, rec.Body.String())
	}

	// 3. Track changed: a track without analysis is sent for backfill
	playing := started.Queue[0].Track
	playing.Features = domain.AudioFeatures{}
	rec = env.do(t, http.MethodPost, "/sessions/current/track-changed", trackChangedRequest{Track: &playing})
	if rec.Code != http.StatusOK {
		t.Fatalf("track-changed: got %d: %s", rec.Code, rec.Body.String())
	}
	for _, e := range decode[queueResponse](t, rec).Entries {
		if e.Track.ID == playing.ID {
			t.Fatalf("playing track still queued")
		}
	}
	if len(env.backfill.ids) != 1 || env.backfill.ids[0] != playing.ID {
		t.Fatalf("backfill: got %v, want [%s]", env.backfill.ids, playing.ID)
	}

	// 4. Early skip
	rec = env.do(t, http.MethodPost, "/sessions/current/track-skipped", trackSkippedRequest{Track: &playing, PlayedMs: 10000})
	if rec.Code != http.StatusOK {
		t.Fatalf("track-skipped: got %d: %s", rec.Code, rec.Body.String())
	}
	outcome := decode[services.SkipOutcome](t, rec)
	if outcome.Kind != services.SkipEarly || !outcome.Learned {
		t.Fatalf("unexpected skip outcome: %+v", outcome)
	}

	// 5. Score a candidate against what is queued
	rec = env.do(t, http.MethodPost, "/sessions/current/analyze", analyzeRequest{Track: domain.Ptr(track("next", 126, 2, 0.7))})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: got %d: %s", rec.Code, rec.Body.String())
	}
	report := decode[services.QueueCompatibility](t, rec)
	if report.Compared == 0 || report.Min > report.Average || report.Average > report.Max {
		t.Fatalf("unexpected queue report: %+v", report)
	}
	rec = env.do(t, http.MethodPost, "/sessions/current/analyze", analyzeRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("analyze without track: expected 400, got %d", rec.Code)
	}

	// 6. Queue operations
	for _, path := range []string{"/sessions/current/queue/optimize", "/sessions/current/queue/rebuild"} {
		rec = env.do(t, http.MethodPost, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: got %d: %s", path, rec.Code, rec.Body.String())
		}
	}
	rec = env.do(t, http.MethodGet, "/sessions/current/queue", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("queue: got %d", rec.Code)
	}

	// 7. Stop
	rec = env.do(t, http.MethodDelete, "/sessions/current", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: got %d: %s", rec.Code, rec.Body.String())
	}
	summary := decode[services.SessionSummary](t, rec)
	if summary.Session.TracksPlayed != 1 || summary.Session.TracksSkipped != 1 {
		t.Fatalf("summary counts: %+v", summary.Session)
	}

	rec = env.do(t, http.MethodGet, "/sessions/current", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("after stop: expected 404, got %d", rec.Code)
	}

	// 8. The stopped session stays readable by id
	rec = env.do(t, http.MethodGet, "/sessions/"+started.Session.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup: got %d: %s", rec.Code, rec.Body.String())
	}
	record := decode[services.SessionRecord](t, rec)
	if record.Session.Status != domain.SessionStopped || record.Session.TracksPlayed != 1 || len(record.Queue) == 0 {
		t.Fatalf("unexpected record: %+v", record)
	}

	rec = env.do(t, http.MethodGet, "/sessions/no-such-session", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Code != errCodeNotFound {
		t.Fatalf("code: got %s, want %s", got.Code, errCodeNotFound)
	}
}

func TestHandler_StartSessionValidation(t *testing.T) {
	tests := []struct {
		name           string
		body           startSessionRequest
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "unknown mode",
			body:           startSessionRequest{Mode: "opera"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   errCodeUnknownMode,
		},
		{
			name:           "energy out of range",
			body:           startSessionRequest{Mode: "party", TargetEnergy: domain.Ptr(-0.1)},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   errCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/sessions", tt.body)
			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if got := decode[errorResponse](t, rec); got.Code != tt.expectedCode {
				t.Fatalf("code: got %s, want %s", got.Code, tt.expectedCode)
			}
		})
	}
}
