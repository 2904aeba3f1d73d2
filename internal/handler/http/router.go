package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bodaconnect/review-service/internal/service"
	"github.com/bodaconnect/review-service/pkg/health"
	"github.com/bodaconnect/review-service/pkg/middleware"
)

// ratingCacheSeconds is how long clients may cache public rating reads.
// Aggregates move slowly; a minute of staleness is acceptable.
const ratingCacheSeconds = 60

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	moderationService *service.ModerationService,
	ratingService *service.RatingService,
	tokenValidator middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Tracing("review-service"))
	r.Use(middleware.PrometheusMetrics("review"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	reviewHandler := NewReviewHandler(reviewService, moderationService, logger)
	moderationHandler := NewModerationHandler(reviewService, moderationService, ratingService, logger)
	ratingHandler := NewRatingHandler(ratingService, logger)

	// Public read endpoints: approved reviews and aggregate ratings.
	r.Route("/api/v1/subjects/{role}/{id}", func(r chi.Router) {
		r.Use(middleware.CacheControl(ratingCacheSeconds))

		r.Get("/reviews", reviewHandler.ListSubjectReviews)
		r.Get("/rating", ratingHandler.GetSubjectRating)
	})

	// Authenticated review endpoints.
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/", reviewHandler.SubmitReview)
		r.Get("/mine", reviewHandler.ListMyReviews)
		r.Get("/{id}", reviewHandler.GetReview)
		r.Put("/{id}", reviewHandler.UpdateReview)
		r.Delete("/{id}", reviewHandler.DeleteReview)
		r.Post("/{id}/response", reviewHandler.RespondToReview)
		r.Post("/{id}/flag", reviewHandler.FlagReview)
	})

	r.Route("/api/v1/bookings/{bookingId}/reviews", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/", reviewHandler.ListBookingReviews)
		r.Get("/status", reviewHandler.HasReviewed)
	})

	// Moderation endpoints, admin only.
	r.Route("/api/v1/moderation", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))
		r.Use(middleware.RequireRole("admin"))

		r.Get("/reviews", moderationHandler.ListQueue)
		r.Post("/reviews/{id}/approve", moderationHandler.Approve)
		r.Post("/reviews/{id}/reject", moderationHandler.Reject)
		r.Post("/reviews/{id}/resolve", moderationHandler.Resolve)
		r.Post("/subjects/{role}/{id}/rating/rebuild", moderationHandler.RebuildRating)
	})

	return r
}
