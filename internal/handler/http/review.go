package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bodaconnect/review-service/internal/domain"
	"github.com/bodaconnect/review-service/internal/service"
	apperrors "github.com/bodaconnect/review-service/pkg/errors"
	"github.com/bodaconnect/review-service/pkg/httputil"
	"github.com/bodaconnect/review-service/pkg/middleware"
	"github.com/bodaconnect/review-service/pkg/pagination"
	"github.com/bodaconnect/review-service/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	reviews    *service.ReviewService
	moderation *service.ModerationService
	logger     *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(reviews *service.ReviewService, moderation *service.ModerationService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews:    reviews,
		moderation: moderation,
		logger:     logger,
	}
}

// --- Request DTOs ---

// SubmitReviewRequest is the JSON request body for submitting a review.
// The reviewer identity comes from the access token, not the body.
type SubmitReviewRequest struct {
	BookingID string   `json:"booking_id" validate:"required,uuid"`
	Rating    float64  `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string   `json:"comment" validate:"max=500"`
	Tags      []string `json:"tags" validate:"max=6,dive,required"`
	PhotoRefs []string `json:"photo_refs" validate:"max=5,dive,required"`
}

// UpdateReviewRequest is the JSON request body for editing a review. All
// content fields are replaced.
type UpdateReviewRequest struct {
	Rating    float64  `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string   `json:"comment" validate:"max=500"`
	Tags      []string `json:"tags" validate:"max=6,dive,required"`
	PhotoRefs []string `json:"photo_refs" validate:"max=5,dive,required"`
}

// RespondRequest is the JSON request body for the subject's response.
type RespondRequest struct {
	Response string `json:"response" validate:"required,max=500"`
}

// FlagRequest is the JSON request body for disputing an approved review.
type FlagRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// --- Handlers ---

// SubmitReview handles POST /api/v1/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req SubmitReviewRequest
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

	review, err := h.reviews.SubmitReview(r.Context(), service.SubmitReviewInput{
		BookingID:  req.BookingID,
		ReviewerID: middleware.UserIDFromContext(r.Context()),
		Rating:     req.Rating,
		Comment:    req.Comment,
		Tags:       req.Tags,
		PhotoRefs:  req.PhotoRefs,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// GetReview handles GET /api/v1/reviews/{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	review, err := h.reviews.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Non-public reviews are only visible to their participants and admins.
	if !review.Visibility && !canSeeHidden(r, review) {
		httputil.WriteError(w, r, apperrors.NotFound("review", id), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// UpdateReview handles PUT /api/v1/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")

	var req UpdateReviewRequest
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

	review, err := h.reviews.UpdateReview(r.Context(), id, middleware.UserIDFromContext(r.Context()), service.UpdateReviewInput{
		Rating:    req.Rating,
		Comment:   req.Comment,
		Tags:      req.Tags,
		PhotoRefs: req.PhotoRefs,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.reviews.DeleteReview(r.Context(), id, middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// RespondToReview handles POST /api/v1/reviews/{id}/response
func (h *ReviewHandler) RespondToReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")

	var req RespondRequest
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

	review, err := h.reviews.RespondToReview(r.Context(), id, middleware.UserIDFromContext(r.Context()), req.Response)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// FlagReview handles POST /api/v1/reviews/{id}/flag. Any authenticated user
// may dispute an approved review; moderators resolve the dispute.
func (h *ReviewHandler) FlagReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")

	var req FlagRequest
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

	review, err := h.moderation.Flag(r.Context(), id, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// ListSubjectReviews handles GET /api/v1/subjects/{role}/{id}/reviews
func (h *ReviewHandler) ListSubjectReviews(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	subjectID := chi.URLParam(r, "id")
	params := pagination.FromRequest(r)

	result, err := h.reviews.ListForSubject(r.Context(), subjectID, role, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(result.Data, result.TotalCount, result.Page, result.PerPage))
}

// ListMyReviews handles GET /api/v1/reviews/mine
func (h *ReviewHandler) ListMyReviews(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	result, err := h.reviews.ListByReviewer(r.Context(), middleware.UserIDFromContext(r.Context()), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(result.Data, result.TotalCount, result.Page, result.PerPage))
}

// ListBookingReviews handles GET /api/v1/bookings/{bookingId}/reviews
func (h *ReviewHandler) ListBookingReviews(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")

	reviews, err := h.reviews.ListForBooking(r.Context(), bookingID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: reviews})
}

// HasReviewed handles GET /api/v1/bookings/{bookingId}/reviews/status and
// reports whether the caller already reviewed the booking.
func (h *ReviewHandler) HasReviewed(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")

	reviewed, err := h.reviews.HasReviewed(r.Context(), bookingID, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]bool{"has_reviewed": reviewed}})
}

// canSeeHidden reports whether the caller may read a review that is not
// publicly visible.
func canSeeHidden(r *http.Request, review *domain.Review) bool {
	userID := middleware.UserIDFromContext(r.Context())
	if userID != "" && (userID == review.ReviewerID || userID == review.SubjectID) {
		return true
	}
	return middleware.RoleFromContext(r.Context()) == "admin"
}
