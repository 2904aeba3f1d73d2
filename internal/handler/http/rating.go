package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bodaconnect/review-service/internal/service"
	"github.com/bodaconnect/review-service/pkg/httputil"
)

// RatingHandler handles HTTP requests for subject rating endpoints.
type RatingHandler struct {
	ratings *service.RatingService
	logger  *slog.Logger
}

// NewRatingHandler creates a new rating HTTP handler.
func NewRatingHandler(ratings *service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{
		ratings: ratings,
		logger:  logger,
	}
}

// GetSubjectRating handles GET /api/v1/subjects/{role}/{id}/rating
func (h *RatingHandler) GetSubjectRating(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	subjectID := chi.URLParam(r, "id")

	rating, err := h.ratings.GetSubjectRating(r.Context(), subjectID, role)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rating})
}
