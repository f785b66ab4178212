package rest

import (
	"log/slog"
	"net/http"

	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
	"github.com/jordanpartridge/conduit-dj/internal/core/services"
)

// Backfiller queues a background feature lookup for a track.
type Backfiller interface {
	Backfill(trackID string) bool
}

// Deps wires a Handler. Catalog and Backfill are optional.
type Deps struct {
	Sessions *services.SessionService
	Matcher  *services.BeatMatcher
	Builder  *services.QueueBuilder
	Catalog  ports.TrackCatalog
	Backfill Backfiller
	Logger   *slog.Logger
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	sessions  *services.SessionService
	matcher   *services.BeatMatcher
	builder   *services.QueueBuilder
	optimizer *services.QueueOptimizer
	catalog   ports.TrackCatalog
	backfill  Backfiller
	logger    *slog.Logger
	router    *http.ServeMux // Standard library router
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		sessions:  deps.Sessions,
		matcher:   deps.Matcher,
		builder:   deps.Builder,
		optimizer: services.NewQueueOptimizer(deps.Matcher),
		catalog:   deps.Catalog,
		backfill:  deps.Backfill,
		logger:    logger.With("adapter", "rest"),
		router:    http.NewServeMux(),
	}

	// Register Routes
	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
// It acts as a proxy, passing the request to our internal router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	// Health Check
	h.router.HandleFunc("GET /health", h.HealthCheck)

	// Stateless engine
	h.router.HandleFunc("POST /compatibility", h.AnalyzeCompatibility)
	h.router.HandleFunc("POST /queue/build", h.BuildQueue)
	h.router.HandleFunc("POST /queue/optimize", h.OptimizeTracks)
	h.router.HandleFunc("POST /tracks/search", h.SearchTrack)

	// Session lifecycle
	h.router.HandleFunc("POST /sessions", h.StartSession)
	h.router.HandleFunc("GET /sessions/current", h.GetSession)
	h.router.HandleFunc("GET /sessions/{id}", h.LookupSession)
	h.router.HandleFunc("DELETE /sessions/current", h.StopSession)
	h.router.HandleFunc("GET /sessions/current/queue", h.GetQueue)
	h.router.HandleFunc("POST /sessions/current/queue/optimize", h.OptimizeQueue)
	h.router.HandleFunc("POST /sessions/current/queue/rebuild", h.RebuildQueue)
	h.router.HandleFunc("POST /sessions/current/track-changed", h.TrackChanged)
	h.router.HandleFunc("POST /sessions/current/track-skipped", h.TrackSkipped)
	h.router.HandleFunc("POST /sessions/current/analyze", h.AnalyzeAgainstQueue)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "message": "conduit-dj is live"}
	if sess, ok := h.sessions.Status(); ok {
		status["session_id"] = sess.ID
		status["mode"] = sess.Mode
	}
	writeJSON(w, http.StatusOK, status)
}
