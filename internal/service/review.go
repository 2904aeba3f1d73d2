package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bodaconnect/review-service/internal/booking"
	"github.com/bodaconnect/review-service/internal/domain"
	"github.com/bodaconnect/review-service/internal/event"
	"github.com/bodaconnect/review-service/internal/repository"
	apperrors "github.com/bodaconnect/review-service/pkg/errors"
	"github.com/bodaconnect/review-service/pkg/pagination"
)

// SubmitReviewInput holds the parameters for submitting a review.
type SubmitReviewInput struct {
	BookingID  string
	ReviewerID string
	Rating     float64
	Comment    string
	Tags       []string
	PhotoRefs  []string
}

// UpdateReviewInput holds the reviewer-editable content fields. All fields
// are replaced, not merged.
type UpdateReviewInput struct {
	Rating    float64
	Comment   string
	Tags      []string
	PhotoRefs []string
}

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	repo        repository.ReviewRepository
	bookings    booking.Gateway
	producer    *event.Producer
	autoApprove bool
	logger      *slog.Logger
}

// NewReviewService creates a new review service. When autoApprove is set,
// submitted reviews skip moderation and are published immediately.
func NewReviewService(repo repository.ReviewRepository, bookings booking.Gateway, producer *event.Producer, autoApprove bool, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:        repo,
		bookings:    bookings,
		producer:    producer,
		autoApprove: autoApprove,
		logger:      logger,
	}
}

// SubmitReview creates a review for a completed booking. The reviewer must
// be a party of the booking; the subject is the other party. Uniqueness per
// (booking, reviewer) is enforced by the store.
func (s *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*domain.Review, error) {
	if input.BookingID == "" {
		return nil, apperrors.Validation("booking_id is required")
	}
	if input.ReviewerID == "" {
		return nil, apperrors.Validation("reviewer_id is required")
	}
	if err := validateContent(input.Rating, input.Comment, input.PhotoRefs); err != nil {
		return nil, err
	}

	bk, err := s.bookings.GetBooking(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsCompleted() {
		return nil, apperrors.InvalidState(fmt.Sprintf("booking is %s, only completed bookings can be reviewed", bk.Status))
	}

	reviewerRole, ok := bk.PartyRole(input.ReviewerID)
	if !ok {
		return nil, apperrors.Forbidden("reviewer is not a party of this booking")
	}
	subjectID, subjectRole, _ := bk.Counterpart(input.ReviewerID)

	for _, tag := range input.Tags {
		if !domain.IsValidTag(reviewerRole, tag) {
			return nil, apperrors.Validation(fmt.Sprintf("tag %q is not valid for a %s review", tag, reviewerRole))
		}
	}

	status := domain.StatusPending
	if s.autoApprove {
		status = domain.StatusApproved
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:              uuid.New().String(),
		BookingID:       input.BookingID,
		ReviewerID:      input.ReviewerID,
		ReviewerRole:    reviewerRole,
		SubjectID:       subjectID,
		SubjectRole:     subjectRole,
		Rating:          input.Rating,
		Comment:         input.Comment,
		Tags:            input.Tags,
		PhotoRefs:       input.PhotoRefs,
		ServiceCategory: bk.ServiceCategory,
		ServiceDate:     bk.ServiceDate,
		Status:          status,
		Visibility:      status == domain.StatusApproved,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.publish(ctx, s.producer.PublishReviewCreated, review, event.TopicReviewCreated)
	if status == domain.StatusApproved {
		s.publish(ctx, s.producer.PublishReviewApproved, review, event.TopicReviewApproved)
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("booking_id", review.BookingID),
		slog.String("reviewer_id", review.ReviewerID),
		slog.String("status", review.Status),
		slog.Float64("rating", review.Rating),
	)

	return review, nil
}

// GetReview retrieves a review by ID.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// ListForSubject returns the approved reviews about a subject, newest first.
func (s *ReviewService) ListForSubject(ctx context.Context, subjectID, subjectRole string, params pagination.Params) (*pagination.Result[domain.Review], error) {
	if !domain.IsValidRole(subjectRole) {
		return nil, apperrors.Validation("subject_role must be client or supplier")
	}

	status := domain.StatusApproved
	reviews, total, err := s.repo.List(ctx, repository.ReviewFilter{
		SubjectID:   &subjectID,
		SubjectRole: &subjectRole,
		Status:      &status,
		Page:        params.Page,
		PerPage:     params.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews for subject: %w", err)
	}

	result := pagination.NewResult(reviews, total, params)
	return &result, nil
}

// ListByReviewer returns the reviews authored by a user in any status,
// newest first. Intended for the reviewer's own history.
func (s *ReviewService) ListByReviewer(ctx context.Context, reviewerID string, params pagination.Params) (*pagination.Result[domain.Review], error) {
	reviews, total, err := s.repo.List(ctx, repository.ReviewFilter{
		ReviewerID: &reviewerID,
		Page:       params.Page,
		PerPage:    params.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews by reviewer: %w", err)
	}

	result := pagination.NewResult(reviews, total, params)
	return &result, nil
}

// ListByStatus returns reviews in the given moderation status, newest
// first. Used by the moderation queue.
func (s *ReviewService) ListByStatus(ctx context.Context, status string, params pagination.Params) (*pagination.Result[domain.Review], error) {
	if !domain.IsValidStatus(status) {
		return nil, apperrors.Validation(fmt.Sprintf("unknown status %q", status))
	}

	reviews, total, err := s.repo.List(ctx, repository.ReviewFilter{
		Status:  &status,
		Page:    params.Page,
		PerPage: params.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews by status: %w", err)
	}

	result := pagination.NewResult(reviews, total, params)
	return &result, nil
}

// ListForBooking returns the reviews of a booking, at most one per direction.
func (s *ReviewService) ListForBooking(ctx context.Context, bookingID string) ([]domain.Review, error) {
	reviews, err := s.repo.ListForBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list reviews for booking: %w", err)
	}
	return reviews, nil
}

// HasReviewed reports whether the reviewer already submitted a review for
// the booking.
func (s *ReviewService) HasReviewed(ctx context.Context, bookingID, reviewerID string) (bool, error) {
	exists, err := s.repo.HasReviewed(ctx, bookingID, reviewerID)
	if err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}
	return exists, nil
}

// UpdateReview replaces the content of the caller's own review. Rejected
// reviews cannot be edited.
func (s *ReviewService) UpdateReview(ctx context.Context, id, callerID string, input UpdateReviewInput) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.ReviewerID != callerID {
		return nil, apperrors.Forbidden("only the reviewer can edit this review")
	}
	if !review.IsMutable() {
		return nil, apperrors.InvalidState(fmt.Sprintf("review is %s and can no longer be edited", review.Status))
	}
	if err := validateContent(input.Rating, input.Comment, input.PhotoRefs); err != nil {
		return nil, err
	}
	for _, tag := range input.Tags {
		if !domain.IsValidTag(review.ReviewerRole, tag) {
			return nil, apperrors.Validation(fmt.Sprintf("tag %q is not valid for a %s review", tag, review.ReviewerRole))
		}
	}

	if err := s.repo.UpdateContent(ctx, id, input.Rating, input.Comment, input.Tags, input.PhotoRefs); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	review.Rating = input.Rating
	review.Comment = input.Comment
	review.Tags = input.Tags
	review.PhotoRefs = input.PhotoRefs
	review.UpdatedAt = time.Now().UTC()

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.Float64("rating", review.Rating),
	)

	return review, nil
}

// DeleteReview removes the caller's own review. An approved review's
// exclusion delta is applied by the store.
func (s *ReviewService) DeleteReview(ctx context.Context, id, callerID string) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if review.ReviewerID != callerID {
		return apperrors.Forbidden("only the reviewer can delete this review")
	}
	if !review.IsMutable() {
		return apperrors.InvalidState(fmt.Sprintf("review is %s and can no longer be deleted", review.Status))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.publish(ctx, s.producer.PublishReviewDeleted, review, event.TopicReviewDeleted)

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", review.ID),
		slog.String("reviewer_id", review.ReviewerID),
	)

	return nil
}

// RespondToReview records the subject's single public response to a review
// about them. Only approved or disputed reviews accept a response.
func (s *ReviewService) RespondToReview(ctx context.Context, id, callerID, response string) (*domain.Review, error) {
	if response == "" {
		return nil, apperrors.Validation("response is required")
	}
	if len(response) > domain.MaxCommentLength {
		return nil, apperrors.Validation(fmt.Sprintf("response exceeds %d characters", domain.MaxCommentLength))
	}

	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.SubjectID != callerID {
		return nil, apperrors.Forbidden("only the review's subject can respond")
	}
	if !review.CanRespond() {
		return nil, apperrors.InvalidState(fmt.Sprintf("review is %s, responses require an approved or disputed review", review.Status))
	}

	if err := s.repo.SetResponse(ctx, id, response); err != nil {
		return nil, fmt.Errorf("set review response: %w", err)
	}

	now := time.Now().UTC()
	review.Response = response
	review.RespondedAt = &now
	review.UpdatedAt = now

	s.publish(ctx, s.producer.PublishReviewResponded, review, event.TopicReviewResponded)

	s.logger.InfoContext(ctx, "review response recorded",
		slog.String("review_id", review.ID),
		slog.String("subject_id", review.SubjectID),
	)

	return review, nil
}

// validateContent checks the reviewer-supplied content bounds shared by
// submission and edits.
func validateContent(rating float64, comment string, photoRefs []string) error {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return apperrors.Validation(fmt.Sprintf("rating must be between %.1f and %.1f", domain.MinRating, domain.MaxRating))
	}
	if len(comment) > domain.MaxCommentLength {
		return apperrors.Validation(fmt.Sprintf("comment exceeds %d characters", domain.MaxCommentLength))
	}
	if len(photoRefs) > domain.MaxPhotoRefs {
		return apperrors.Validation(fmt.Sprintf("at most %d photos are allowed", domain.MaxPhotoRefs))
	}
	return nil
}

// publish sends a domain event, logging instead of failing the operation
// when the broker is unavailable. The store is the source of truth.
func (s *ReviewService) publish(ctx context.Context, fn func(context.Context, *domain.Review) error, review *domain.Review, topic string) {
	if err := fn(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review event",
			slog.String("topic", topic),
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
}
