package domain

import (
	"math"
	"time"
)

// DefaultAverageRating is the rating shown for a subject with zero approved
// reviews. 5.0 is a product decision (optimistic initial trust), not a
// mathematical default.
const DefaultAverageRating = 5.0

// SubjectAggregate holds the running rating counters for one subject.
// SumRatings and ReviewCount are the source of truth; the displayed average
// is derived on read so incremental deltas cannot drift it.
type SubjectAggregate struct {
	SubjectID   string    `json:"subject_id"`
	SubjectRole string    `json:"subject_role"`
	SumRatings  float64   `json:"-"`
	ReviewCount int       `json:"review_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AverageRating returns the mean rating over approved reviews, rounded to
// one decimal for display, or DefaultAverageRating when no approved reviews
// exist.
func (a *SubjectAggregate) AverageRating() float64 {
	if a.ReviewCount == 0 {
		return DefaultAverageRating
	}
	return math.Round(a.SumRatings/float64(a.ReviewCount)*10) / 10
}

// AggregateDelta is an atomic increment applied to a subject's counters.
// Inclusion of a review is {+rating, +1}; exclusion is {-rating, -1}; a
// rating edit on an approved review is {new-old, 0}.
type AggregateDelta struct {
	SumDelta   float64
	CountDelta int
}

// IsZero reports whether applying the delta would change nothing.
func (d AggregateDelta) IsZero() bool {
	return d.SumDelta == 0 && d.CountDelta == 0
}

// Include returns the delta for a review entering the aggregate.
func Include(rating float64) AggregateDelta {
	return AggregateDelta{SumDelta: rating, CountDelta: 1}
}

// Exclude returns the delta for a review leaving the aggregate.
func Exclude(rating float64) AggregateDelta {
	return AggregateDelta{SumDelta: -rating, CountDelta: -1}
}
