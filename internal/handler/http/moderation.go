package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bodaconnect/review-service/internal/domain"
	"github.com/bodaconnect/review-service/internal/service"
	"github.com/bodaconnect/review-service/pkg/httputil"
	"github.com/bodaconnect/review-service/pkg/pagination"
	"github.com/bodaconnect/review-service/pkg/validator"
)

// ModerationHandler handles HTTP requests for the moderation endpoints.
// All routes are admin-only.
type ModerationHandler struct {
	reviews    *service.ReviewService
	moderation *service.ModerationService
	ratings    *service.RatingService
	logger     *slog.Logger
}

// NewModerationHandler creates a new moderation HTTP handler.
func NewModerationHandler(reviews *service.ReviewService, moderation *service.ModerationService, ratings *service.RatingService, logger *slog.Logger) *ModerationHandler {
	return &ModerationHandler{
		reviews:    reviews,
		moderation: moderation,
		ratings:    ratings,
		logger:     logger,
	}
}

// ResolveRequest is the JSON request body for closing a dispute.
type ResolveRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=approve reject"`
}

// RejectRequest is the JSON request body for rejecting a review. The body
// is optional; a reason helps the audit trail.
type RejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ListQueue handles GET /api/v1/moderation/reviews. Defaults to the pending
// queue; any status can be requested explicitly.
func (h *ModerationHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = domain.StatusPending
	}
	params := pagination.FromRequest(r)

	result, err := h.reviews.ListByStatus(r.Context(), status, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(result.Data, result.TotalCount, result.Page, result.PerPage))
}

// Approve handles POST /api/v1/moderation/reviews/{id}/approve
func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	review, err := h.moderation.Approve(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// Reject handles POST /api/v1/moderation/reviews/{id}/reject
func (h *ModerationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.moderation.Reject(r.Context(), id, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// Resolve handles POST /api/v1/moderation/reviews/{id}/resolve
func (h *ModerationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.moderation.Resolve(r.Context(), id, req.Outcome)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// RebuildRating handles POST /api/v1/moderation/subjects/{role}/{id}/rating/rebuild.
// Administrative repair: recomputes the counters from the approved reviews.
func (h *ModerationHandler) RebuildRating(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	subjectID := chi.URLParam(r, "id")

	rating, err := h.ratings.RebuildSubjectRating(r.Context(), subjectID, role)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rating})
}
