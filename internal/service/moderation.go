package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bodaconnect/review-service/internal/domain"
	"github.com/bodaconnect/review-service/internal/event"
	"github.com/bodaconnect/review-service/internal/repository"
	apperrors "github.com/bodaconnect/review-service/pkg/errors"
)

// ModerationService implements the review moderation lifecycle. All status
// changes go through conditional updates in the store, so concurrent
// moderators cannot double-apply a transition.
type ModerationService struct {
	repo     repository.ReviewRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewModerationService creates a new moderation service.
func NewModerationService(repo repository.ReviewRepository, producer *event.Producer, logger *slog.Logger) *ModerationService {
	return &ModerationService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// Approve publishes a pending or disputed review. The review enters the
// subject's aggregate atomically with the status change.
func (s *ModerationService) Approve(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.transition(ctx, id, domain.StatusApproved, "")
	if err != nil {
		return nil, err
	}

	s.publish(ctx, s.producer.PublishReviewApproved, review, event.TopicReviewApproved)

	s.logger.InfoContext(ctx, "review approved",
		slog.String("review_id", review.ID),
		slog.String("subject_id", review.SubjectID),
	)

	return review, nil
}

// Reject declines a pending or disputed review. Rejected is terminal.
func (s *ModerationService) Reject(ctx context.Context, id, reason string) (*domain.Review, error) {
	review, err := s.transition(ctx, id, domain.StatusRejected, reason)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, s.producer.PublishReviewRejected, review, event.TopicReviewRejected)

	s.logger.InfoContext(ctx, "review rejected",
		slog.String("review_id", review.ID),
		slog.String("reason", reason),
	)

	return review, nil
}

// Flag disputes an approved review, pulling it from the subject's aggregate
// while under investigation. A reason is required.
func (s *ModerationService) Flag(ctx context.Context, id, reason string) (*domain.Review, error) {
	if reason == "" {
		return nil, apperrors.Validation("a flag reason is required")
	}

	review, err := s.transition(ctx, id, domain.StatusDisputed, reason)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, s.producer.PublishReviewFlagged, review, event.TopicReviewFlagged)

	s.logger.InfoContext(ctx, "review flagged",
		slog.String("review_id", review.ID),
		slog.String("reason", reason),
	)

	return review, nil
}

// Resolve closes a disputed review. Outcome "approve" restores it to the
// aggregate; "reject" removes it permanently.
func (s *ModerationService) Resolve(ctx context.Context, id, outcome string) (*domain.Review, error) {
	var target string
	switch outcome {
	case domain.OutcomeApprove:
		target = domain.StatusApproved
	case domain.OutcomeReject:
		target = domain.StatusRejected
	default:
		return nil, apperrors.Validation(fmt.Sprintf("outcome must be %q or %q", domain.OutcomeApprove, domain.OutcomeReject))
	}

	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.Status != domain.StatusDisputed {
		return nil, apperrors.InvalidState(fmt.Sprintf("review is %s, only disputed reviews can be resolved", review.Status))
	}

	if err := s.repo.TransitionStatus(ctx, id, domain.StatusDisputed, target, ""); err != nil {
		return nil, err
	}
	applyTransition(review, target, "")

	s.publish(ctx, s.producer.PublishReviewResolved, review, event.TopicReviewResolved)

	s.logger.InfoContext(ctx, "review dispute resolved",
		slog.String("review_id", review.ID),
		slog.String("outcome", outcome),
	)

	return review, nil
}

// transition validates against the transition table from the review's
// current status and applies the conditional update. The store re-checks
// the source status, so a concurrent change surfaces as a state error
// rather than a double-applied transition.
func (s *ModerationService) transition(ctx context.Context, id, target, reason string) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if !review.CanTransitionTo(target) {
		return nil, apperrors.InvalidState(fmt.Sprintf("review is %s, cannot transition to %s", review.Status, target))
	}

	if err := s.repo.TransitionStatus(ctx, id, review.Status, target, reason); err != nil {
		return nil, err
	}
	applyTransition(review, target, reason)

	return review, nil
}

func applyTransition(review *domain.Review, target, reason string) {
	review.Status = target
	review.Visibility = target == domain.StatusApproved
	review.FlagReason = reason
}

func (s *ModerationService) publish(ctx context.Context, fn func(context.Context, *domain.Review) error, review *domain.Review, topic string) {
	if err := fn(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish moderation event",
			slog.String("topic", topic),
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
}
