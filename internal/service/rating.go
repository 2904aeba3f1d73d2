package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bodaconnect/review-service/internal/domain"
	"github.com/bodaconnect/review-service/internal/repository"
	apperrors "github.com/bodaconnect/review-service/pkg/errors"
)

// SubjectRating is the public shape of a subject's aggregate rating. The
// average is derived from the counters at read time.
type SubjectRating struct {
	SubjectID     string    `json:"subject_id"`
	SubjectRole   string    `json:"subject_role"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RatingService exposes subject aggregate ratings and the repair operation.
type RatingService struct {
	aggregates repository.AggregateRepository
	logger     *slog.Logger
}

// NewRatingService creates a new rating service.
func NewRatingService(aggregates repository.AggregateRepository, logger *slog.Logger) *RatingService {
	return &RatingService{
		aggregates: aggregates,
		logger:     logger,
	}
}

// GetSubjectRating returns the subject's aggregate rating. A subject with
// no approved reviews gets the default rating at count zero.
func (s *RatingService) GetSubjectRating(ctx context.Context, subjectID, subjectRole string) (*SubjectRating, error) {
	if !domain.IsValidRole(subjectRole) {
		return nil, apperrors.Validation("subject_role must be client or supplier")
	}

	agg, err := s.aggregates.Get(ctx, subjectID, subjectRole)
	if err != nil {
		return nil, fmt.Errorf("get subject aggregate: %w", err)
	}

	return toSubjectRating(agg), nil
}

// RebuildSubjectRating recomputes the subject's counters from the approved
// review set. Administrative repair for drift, not part of the hot path.
func (s *RatingService) RebuildSubjectRating(ctx context.Context, subjectID, subjectRole string) (*SubjectRating, error) {
	if !domain.IsValidRole(subjectRole) {
		return nil, apperrors.Validation("subject_role must be client or supplier")
	}

	agg, err := s.aggregates.Rebuild(ctx, subjectID, subjectRole)
	if err != nil {
		return nil, fmt.Errorf("rebuild subject aggregate: %w", err)
	}

	s.logger.InfoContext(ctx, "subject aggregate rebuilt",
		slog.String("subject_id", subjectID),
		slog.String("subject_role", subjectRole),
		slog.Int("review_count", agg.ReviewCount),
		slog.Float64("average_rating", agg.AverageRating()),
	)

	return toSubjectRating(agg), nil
}

func toSubjectRating(agg *domain.SubjectAggregate) *SubjectRating {
	return &SubjectRating{
		SubjectID:     agg.SubjectID,
		SubjectRole:   agg.SubjectRole,
		AverageRating: agg.AverageRating(),
		ReviewCount:   agg.ReviewCount,
		UpdatedAt:     agg.UpdatedAt,
	}
}
