package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bodaconnect/review-service/internal/domain"
	"github.com/bodaconnect/review-service/pkg/logger"

	pkgkafka "github.com/bodaconnect/review-service/pkg/kafka"
)

// Kafka topics for review domain events.
const (
	TopicReviewCreated   = "bodaconnect.review.created"
	TopicReviewApproved  = "bodaconnect.review.approved"
	TopicReviewRejected  = "bodaconnect.review.rejected"
	TopicReviewFlagged   = "bodaconnect.review.flagged"
	TopicReviewResolved  = "bodaconnect.review.resolved"
	TopicReviewResponded = "bodaconnect.review.responded"
	TopicReviewDeleted   = "bodaconnect.review.deleted"
)

// Aggregate type constant.
const AggregateTypeReview = "review"

// Source identifier for events originating from the review service.
const SourceReviewService = "review-service"

// ReviewEventData is the payload shared by all review lifecycle events.
type ReviewEventData struct {
	ReviewID    string  `json:"review_id"`
	BookingID   string  `json:"booking_id"`
	ReviewerID  string  `json:"reviewer_id"`
	SubjectID   string  `json:"subject_id"`
	SubjectRole string  `json:"subject_role"`
	Rating      float64 `json:"rating"`
	Status      string  `json:"status"`
	FlagReason  string  `json:"flag_reason,omitempty"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, review)
}

// PublishReviewApproved publishes a review.approved event.
func (p *Producer) PublishReviewApproved(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewApproved, review)
}

// PublishReviewRejected publishes a review.rejected event.
func (p *Producer) PublishReviewRejected(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewRejected, review)
}

// PublishReviewFlagged publishes a review.flagged event.
func (p *Producer) PublishReviewFlagged(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewFlagged, review)
}

// PublishReviewResolved publishes a review.resolved event. The review's
// status carries the resolution outcome.
func (p *Producer) PublishReviewResolved(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewResolved, review)
}

// PublishReviewResponded publishes a review.responded event.
func (p *Producer) PublishReviewResponded(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewResponded, review)
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewDeleted, review)
}

func (p *Producer) publish(ctx context.Context, topic string, review *domain.Review) error {
	data := ReviewEventData{
		ReviewID:    review.ID,
		BookingID:   review.BookingID,
		ReviewerID:  review.ReviewerID,
		SubjectID:   review.SubjectID,
		SubjectRole: review.SubjectRole,
		Rating:      review.Rating,
		Status:      review.Status,
		FlagReason:  review.FlagReason,
	}

	event, err := pkgkafka.NewEvent(topic, review.ID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		event.WithCorrelationID(correlationID)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.String("review_id", review.ID),
		slog.String("subject_id", review.SubjectID),
	)

	return nil
}
