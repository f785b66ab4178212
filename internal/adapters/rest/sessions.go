package rest

import (
	"net/http"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/services"
)

type startSessionRequest struct {
	Mode         string        `json:"mode"`
	TargetEnergy *float64      `json:"target_energy"`
	Prompt       string        `json:"prompt"`
	Seed         *domain.Track `json:"seed"`
}

type sessionResponse struct {
	Session domain.Session      `json:"session"`
	Queue   []domain.QueueEntry `json:"queue"`
}

type queueResponse struct {
	Entries []domain.QueueEntry `json:"entries"`
}

// StartSession handles POST /sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TargetEnergy != nil && (*req.TargetEnergy < 0 || *req.TargetEnergy > 1) {
		writeError(w, http.StatusBadRequest, "target_energy must be between 0 and 1")
		return
	}

	sess, err := h.sessions.Start(r.Context(), services.StartOptions{
		Mode:         req.Mode,
		TargetEnergy: req.TargetEnergy,
		Prompt:       req.Prompt,
		Seed:         req.Seed,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	entries, err := h.sessions.Queue()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/sessions/current")
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess, Queue: entries})
}

// GetSession handles GET /sessions/current
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Status()
	if !ok {
		h.writeServiceError(w, r, services.ErrNoActiveSession)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// LookupSession handles GET /sessions/{id}. Stopped sessions are returned
// with the queue they last saved.
func (h *Handler) LookupSession(w http.ResponseWriter, r *http.Request) {
	record, err := h.sessions.Lookup(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// StopSession handles DELETE /sessions/current
func (h *Handler) StopSession(w http.ResponseWriter, r *http.Request) {
	summary, err := h.sessions.Stop(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetQueue handles GET /sessions/current/queue
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sessions.Queue()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{Entries: entries})
}

// OptimizeQueue handles POST /sessions/current/queue/optimize
func (h *Handler) OptimizeQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sessions.Optimize(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{Entries: entries})
}

type rebuildRequest struct {
	CurrentTrack *domain.Track `json:"current_track"`
}

// RebuildQueue handles POST /sessions/current/queue/rebuild. The body is optional.
func (h *Handler) RebuildQueue(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	entries, err := h.sessions.Rebuild(r.Context(), req.CurrentTrack)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{Entries: entries})
}

type trackChangedRequest struct {
	Track *domain.Track `json:"track"`
}

// TrackChanged handles POST /sessions/current/track-changed
func (h *Handler) TrackChanged(w http.ResponseWriter, r *http.Request) {
	// 1. Decode and validate
	var req trackChangedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Track == nil || req.Track.ID == "" {
		writeError(w, http.StatusBadRequest, "track with id is required")
		return
	}

	// 2. Advance the session
	entries, err := h.sessions.TrackChanged(r.Context(), *req.Track)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// 3. Fetch missing analysis in the background
	if h.backfill != nil && !req.Track.Features.HasAnalysis() {
		h.backfill.Backfill(req.Track.ID)
	}

	writeJSON(w, http.StatusOK, queueResponse{Entries: entries})
}

type trackSkippedRequest struct {
	Track    *domain.Track `json:"track"`
	PlayedMs int           `json:"played_ms"`
}

// TrackSkipped handles POST /sessions/current/track-skipped
func (h *Handler) TrackSkipped(w http.ResponseWriter, r *http.Request) {
	var req trackSkippedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Track == nil || req.Track.ID == "" {
		writeError(w, http.StatusBadRequest, "track with id is required")
		return
	}
	if req.PlayedMs < 0 {
		writeError(w, http.StatusBadRequest, "played_ms must not be negative")
		return
	}

	outcome, err := h.sessions.TrackSkipped(r.Context(), *req.Track, req.PlayedMs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type analyzeRequest struct {
	Track *domain.Track `json:"track"`
}

// AnalyzeAgainstQueue handles POST /sessions/current/analyze
func (h *Handler) AnalyzeAgainstQueue(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Track == nil {
		writeError(w, http.StatusBadRequest, "track is required")
		return
	}

	report, err := h.sessions.QueueCompatibility(*req.Track)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
