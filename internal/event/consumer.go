package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bodaconnect/review-service/internal/repository"

	pkgkafka "github.com/bodaconnect/review-service/pkg/kafka"
)

// Topics consumed from other services.
const (
	TopicUserDeleted = "bodaconnect.user.deleted"
)

// ConsumerGroupID for the review service.
const ConsumerGroupID = "review-service"

// UserDeletedData is the payload of a user.deleted event.
type UserDeletedData struct {
	UserID string `json:"user_id"`
}

// ConsumerHandler routes incoming Kafka events to the appropriate handler.
type ConsumerHandler struct {
	reviews repository.ReviewRepository
	logger  *slog.Logger
}

// NewConsumerHandler creates a new event consumer handler.
func NewConsumerHandler(reviews repository.ReviewRepository, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		reviews: reviews,
		logger:  logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicUserDeleted:
		return h.handleUserDeleted(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleUserDeleted removes all reviews authored by the deleted user. Each
// delete carries its own aggregate exclusion, so affected subjects' ratings
// stay consistent without a separate rebuild.
func (h *ConsumerHandler) handleUserDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data UserDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal user.deleted data: %w", err)
	}
	if data.UserID == "" {
		h.logger.WarnContext(ctx, "user.deleted event without user_id",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	deleted := 0
	for {
		reviews, _, err := h.reviews.List(ctx, repository.ReviewFilter{
			ReviewerID: &data.UserID,
			Page:       1,
			PerPage:    100,
		})
		if err != nil {
			return fmt.Errorf("list reviews of deleted user: %w", err)
		}
		if len(reviews) == 0 {
			break
		}

		for _, review := range reviews {
			if err := h.reviews.Delete(ctx, review.ID); err != nil {
				return fmt.Errorf("delete review %s: %w", review.ID, err)
			}
			deleted++
		}
	}

	h.logger.InfoContext(ctx, "removed reviews of deleted user",
		slog.String("user_id", data.UserID),
		slog.Int("deleted", deleted),
	)

	return nil
}

// NewConsumers creates Kafka consumers for all topics the review service
// subscribes to, each wrapped in the idempotent handler so redelivered
// events are applied once.
func NewConsumers(brokers []string, store pkgkafka.IdempotencyStore, handler *ConsumerHandler, logger *slog.Logger) []*pkgkafka.Consumer {
	topics := []string{
		TopicUserDeleted,
	}

	wrapped := pkgkafka.IdempotentHandler(store, handler.Handle, logger)

	consumers := make([]*pkgkafka.Consumer, 0, len(topics))
	for _, topic := range topics {
		cfg := pkgkafka.ConsumerConfig{
			Brokers:  brokers,
			GroupID:  ConsumerGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}
		consumers = append(consumers, pkgkafka.NewConsumer(cfg, wrapped, logger))
	}

	return consumers
}
