package repository

import (
	"context"

	"github.com/bodaconnect/review-service/internal/domain"
)

// ReviewFilter defines filter criteria for listing reviews.
type ReviewFilter struct {
	SubjectID    *string
	SubjectRole  *string
	ReviewerID   *string
	ReviewerRole *string
	Status       *string
	Page         int
	PerPage      int
}

// ReviewRepository defines the interface for review persistence. All
// mutations that change a review's aggregate inclusion apply the matching
// counter delta in the same transaction.
type ReviewRepository interface {
	// Create inserts a new review. A duplicate (booking_id, reviewer_id)
	// pair returns a conflict error. If the review is created already
	// approved (auto-approve policy), its inclusion delta is applied
	// atomically with the insert.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// List returns reviews matching the filter, newest first, with the
	// total count.
	List(ctx context.Context, filter ReviewFilter) ([]domain.Review, int, error)

	// ListForBooking returns the reviews of a booking, at most one per
	// direction.
	ListForBooking(ctx context.Context, bookingID string) ([]domain.Review, error)

	// HasReviewed reports whether the reviewer already reviewed the booking.
	HasReviewed(ctx context.Context, bookingID, reviewerID string) (bool, error)

	// UpdateContent replaces the reviewer-owned content fields. If the
	// review is approved and the rating changed, the rating delta is
	// applied to the subject's aggregate in the same transaction.
	UpdateContent(ctx context.Context, id string, rating float64, comment string, tags, photoRefs []string) error

	// Delete removes the review. If it was approved, its exclusion delta
	// is applied in the same transaction.
	Delete(ctx context.Context, id string) error

	// TransitionStatus moves the review from one status to another with a
	// conditional update, applying any aggregate delta atomically. A replay
	// whose target status already holds is a no-op; any other mismatch is
	// a state error carrying the actual current status.
	TransitionStatus(ctx context.Context, id, from, to, flagReason string) error

	// SetResponse records the subject's response text and timestamp.
	SetResponse(ctx context.Context, id, response string) error
}

// AggregateRepository defines access to the subject rating counters.
type AggregateRepository interface {
	// Get returns the subject's aggregate, or a zero-valued aggregate when
	// the subject has no approved reviews yet.
	Get(ctx context.Context, subjectID, subjectRole string) (*domain.SubjectAggregate, error)

	// Rebuild recomputes the counters from the approved review set in a
	// single atomic statement and returns the result. Used for repair.
	Rebuild(ctx context.Context, subjectID, subjectRole string) (*domain.SubjectAggregate, error)
}
