package rest

import (
	"net/http"
	"slices"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/services"
)

type compatibilityRequest struct {
	From *domain.Track `json:"from"`
	To   *domain.Track `json:"to"`
}

// AnalyzeCompatibility handles POST /compatibility
func (h *Handler) AnalyzeCompatibility(w http.ResponseWriter, r *http.Request) {
	var req compatibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.From == nil || req.To == nil {
		writeError(w, http.StatusBadRequest, "from and to tracks are required")
		return
	}

	writeJSON(w, http.StatusOK, h.sessions.AnalyzeTransition(*req.From, *req.To))
}

type buildQueueRequest struct {
	Candidates   []domain.Track `json:"candidates"`
	Size         int            `json:"size"`
	Mode         string         `json:"mode"`
	CurrentTrack *domain.Track  `json:"current_track"`
	TargetEnergy *float64       `json:"target_energy"`
	History      []domain.Track `json:"history"`
}

// BuildQueue handles POST /queue/build
func (h *Handler) BuildQueue(w http.ResponseWriter, r *http.Request) {
	// 1. Decode the Request Body
	var req buildQueueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// 2. Validate Input
	if req.TargetEnergy != nil && (*req.TargetEnergy < 0 || *req.TargetEnergy > 1) {
		writeError(w, http.StatusBadRequest, "target_energy must be between 0 and 1")
		return
	}

	// 3. Replay the caller's recent tracks into a recency window
	history := domain.NewHistory(h.builder.Config().ArtistRepeatLimit)
	for _, t := range req.History {
		history.Add(t)
	}

	// 4. The playing track is never queued behind itself
	candidates := req.Candidates
	if req.CurrentTrack != nil {
		candidates = slices.DeleteFunc(slices.Clone(candidates), func(t domain.Track) bool {
			return t.ID == req.CurrentTrack.ID
		})
	}

	// 5. Build
	result := h.builder.Build(candidates, history, services.BuildOptions{
		Size:         req.Size,
		Mode:         req.Mode,
		CurrentTrack: req.CurrentTrack,
		TargetEnergy: req.TargetEnergy,
	})
	if result.Entries == nil {
		result.Entries = []domain.QueueEntry{}
	}

	writeJSON(w, http.StatusOK, result)
}

type optimizeRequest struct {
	Tracks []domain.Track `json:"tracks"`
}

type optimizeResponse struct {
	Tracks []domain.Track `json:"tracks"`
}

// OptimizeTracks handles POST /queue/optimize
func (h *Handler) OptimizeTracks(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tracks := h.optimizer.Optimize(req.Tracks)
	if tracks == nil {
		tracks = []domain.Track{}
	}
	writeJSON(w, http.StatusOK, optimizeResponse{Tracks: tracks})
}

type searchTrackRequest struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// SearchTrack handles POST /tracks/search
func (h *Handler) SearchTrack(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeError(w, http.StatusNotImplemented, "track catalog not configured")
		return
	}

	var req searchTrackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" || req.Artist == "" {
		writeError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	// We pass the Context so the catalog can cancel if the user disconnects
	track, err := h.catalog.SearchTrack(r.Context(), req.Title, req.Artist)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, track)
}
