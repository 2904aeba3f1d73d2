package domain

// Review moderation status constants.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusDisputed = "disputed"
)

// Resolve outcomes for disputed reviews.
const (
	OutcomeApprove = "approve"
	OutcomeReject  = "reject"
)

// ValidStatuses returns all valid review statuses.
func ValidStatuses() []string {
	return []string{
		StatusPending,
		StatusApproved,
		StatusRejected,
		StatusDisputed,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions are valid.
// Rejected is terminal: a rejected review never re-enters the lifecycle.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		StatusPending:  {StatusApproved, StatusRejected},
		StatusApproved: {StatusDisputed},
		StatusDisputed: {StatusApproved, StatusRejected},
		StatusRejected: {},
	}
}

// CanTransitionTo checks if the review can transition to the target status.
func (r *Review) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[r.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status string) bool {
	return len(AllowedTransitions()[status]) == 0
}

// CountsTowardAggregate reports whether reviews in this status are included
// in the subject's aggregate rating. Disputed reviews are excluded while
// under investigation.
func CountsTowardAggregate(status string) bool {
	return status == StatusApproved
}
