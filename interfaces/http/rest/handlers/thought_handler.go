package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"thoughtnet/application/ports"
	"thoughtnet/application/services"
	"thoughtnet/domain"
	apperrors "thoughtnet/pkg/errors"
	"thoughtnet/pkg/utils"
)

// ThoughtHandler handles the /api/thoughts endpoints.
type ThoughtHandler struct {
	repo     ports.ThoughtRepository
	pipeline *services.EnrichmentPipeline
	enricher ports.EnrichmentService
	logger   *zap.Logger
}

// NewThoughtHandler creates a new thought handler.
func NewThoughtHandler(
	repo ports.ThoughtRepository,
	pipeline *services.EnrichmentPipeline,
	enricher ports.EnrichmentService,
	logger *zap.Logger,
) *ThoughtHandler {
	return &ThoughtHandler{
		repo:     repo,
		pipeline: pipeline,
		enricher: enricher,
		logger:   logger,
	}
}

// CreateThoughtRequest is the request body for posting a thought.
// The max tag counts characters, matching the 280-character content cap.
// Author is unconstrained; a blank one gets the anonymous default.
type CreateThoughtRequest struct {
	Content string `json:"content" validate:"required,max=280"`
	Author  string `json:"author,omitempty"`
}

// SummaryResponse is the body for GET /api/thoughts/{id}/summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// List handles GET /api/thoughts.
func (h *ThoughtHandler) List(w http.ResponseWriter, r *http.Request) {
	thoughts, err := h.repo.GetAllThoughts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list thoughts", zap.Error(err))
		respondAppError(w, apperrors.NewInternalError("Failed to fetch thoughts"))
		return
	}
	respondJSON(w, http.StatusOK, thoughts)
}

// Create handles POST /api/thoughts. It responds with the stored record
// immediately; connection discovery and tagging happen afterwards in the
// background and mutate the record once the enrichment service answers.
func (h *ThoughtHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateThoughtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondAppError(w, apperrors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondAppError(w, err)
		return
	}

	thought, err := h.repo.CreateThought(r.Context(), req.Content, req.Author)
	if err != nil {
		h.logger.Error("Failed to create thought", zap.Error(err))
		respondAppError(w, apperrors.NewInternalError("Failed to create thought"))
		return
	}

	h.pipeline.Dispatch(thought)

	respondJSON(w, http.StatusCreated, thought)
}

// Search handles GET /api/thoughts/search?q=.
func (h *ThoughtHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondAppError(w, apperrors.NewValidationError("Search query is required"))
		return
	}

	results, err := h.repo.SearchThoughts(r.Context(), query)
	if err != nil {
		h.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		respondAppError(w, apperrors.NewInternalError("Search failed"))
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// Like handles POST /api/thoughts/{id}/like.
func (h *ThoughtHandler) Like(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	thought, err := h.repo.LikeThought(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to like thought", zap.String("thoughtID", id), zap.Error(err))
		respondAppError(w, apperrors.NewInternalError("Failed to like thought"))
		return
	}
	if thought == nil {
		respondAppError(w, apperrors.NewNotFoundError("Thought"))
		return
	}
	respondJSON(w, http.StatusOK, thought)
}

// Connections handles GET /api/thoughts/{id}/connections. Connection ids
// that no longer resolve are dropped silently; an unknown thought id
// yields an empty list rather than a 404.
func (h *ThoughtHandler) Connections(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	connected, err := h.repo.GetConnectedThoughts(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to resolve connections", zap.String("thoughtID", id), zap.Error(err))
		respondAppError(w, apperrors.NewInternalError("Failed to get connections"))
		return
	}
	respondJSON(w, http.StatusOK, connected)
}

// Summary handles GET /api/thoughts/{id}/summary: a short LLM-written
// overview of the thought together with its connected thoughts.
func (h *ThoughtHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	thought, err := h.repo.GetThought(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to read thought", zap.String("thoughtID", id), zap.Error(err))
		respondAppError(w, apperrors.NewInternalError("Failed to summarize thought"))
		return
	}
	if thought == nil {
		respondAppError(w, apperrors.NewNotFoundError("Thought"))
		return
	}

	connected, err := h.repo.GetConnectedThoughts(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to resolve connections", zap.String("thoughtID", id), zap.Error(err))
		respondAppError(w, apperrors.NewInternalError("Failed to summarize thought"))
		return
	}

	group := append([]*domain.Thought{thought}, connected...)
	summary := h.enricher.Summarize(r.Context(), group)
	respondJSON(w, http.StatusOK, SummaryResponse{Summary: summary})
}

// ThoughtOfTheDay handles GET /api/thought-of-the-day.
func (h *ThoughtHandler) ThoughtOfTheDay(w http.ResponseWriter, r *http.Request) {
	thought, err := h.repo.GetThoughtOfTheDay(r.Context())
	if err != nil {
		h.logger.Error("Failed to pick thought of the day", zap.Error(err))
		respondAppError(w, apperrors.NewInternalError("Failed to get thought of the day"))
		return
	}
	if thought == nil {
		respondMessage(w, http.StatusNotFound, "No thoughts yet")
		return
	}
	respondJSON(w, http.StatusOK, thought)
}
