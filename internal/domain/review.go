package domain

import "time"

// Party role constants. Every booking has exactly one client and one
// supplier, and each may review the other.
const (
	RoleClient   = "client"
	RoleSupplier = "supplier"
)

// Content bounds enforced at submission.
const (
	MinRating        = 1.0
	MaxRating        = 5.0
	MaxCommentLength = 500
	MaxPhotoRefs     = 5
)

// Review represents one party's review of the other party of a completed
// booking. Two independent reviews may exist per booking, one per direction.
type Review struct {
	ID              string     `json:"id"`
	BookingID       string     `json:"booking_id"`
	ReviewerID      string     `json:"reviewer_id"`
	ReviewerRole    string     `json:"reviewer_role"`
	SubjectID       string     `json:"subject_id"`
	SubjectRole     string     `json:"subject_role"`
	Rating          float64    `json:"rating"`
	Comment         string     `json:"comment,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	PhotoRefs       []string   `json:"photo_refs,omitempty"`
	ServiceCategory string     `json:"service_category"`
	ServiceDate     time.Time  `json:"service_date"`
	Status          string     `json:"status"`
	Visibility      bool       `json:"visibility"`
	FlagReason      string     `json:"flag_reason,omitempty"`
	Response        string     `json:"response,omitempty"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ValidRoles returns all valid party roles.
func ValidRoles() []string {
	return []string{RoleClient, RoleSupplier}
}

// IsValidRole checks if a role string is valid.
func IsValidRole(role string) bool {
	return role == RoleClient || role == RoleSupplier
}

// OppositeRole returns the other side of the marketplace. A client reviews
// a supplier and vice versa; same-role reviews are invalid.
func OppositeRole(role string) string {
	if role == RoleClient {
		return RoleSupplier
	}
	return RoleClient
}

// clientTags is the controlled vocabulary for reviews written about
// suppliers (i.e. authored by clients).
var clientTags = []string{
	"professional",
	"punctual",
	"great_quality",
	"good_value",
	"friendly",
	"responsive",
}

// supplierTags is the controlled vocabulary for reviews written about
// clients (i.e. authored by suppliers).
var supplierTags = []string{
	"punctual",
	"clear_brief",
	"respectful",
	"easy_payment",
	"responsive",
	"organized",
}

// TagsForReviewerRole returns the allowed tag vocabulary for a reviewer role.
func TagsForReviewerRole(reviewerRole string) []string {
	if reviewerRole == RoleClient {
		return clientTags
	}
	return supplierTags
}

// IsValidTag checks whether the tag belongs to the reviewer role's vocabulary.
func IsValidTag(reviewerRole, tag string) bool {
	for _, t := range TagsForReviewerRole(reviewerRole) {
		if t == tag {
			return true
		}
	}
	return false
}

// MutableStatuses returns the statuses whose reviews the reviewer may still
// edit or delete. Rejected is terminal.
func MutableStatuses() []string {
	return []string{StatusPending, StatusApproved, StatusDisputed}
}

// IsMutableStatus checks whether reviews in the status accept content edits.
func IsMutableStatus(status string) bool {
	for _, s := range MutableStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IsMutable reports whether the reviewer may still edit or delete the
// review's content.
func (r *Review) IsMutable() bool {
	return IsMutableStatus(r.Status)
}

// CanRespond reports whether the subject may author a response. Pending
// reviews are not yet visible to the subject.
func (r *Review) CanRespond() bool {
	switch r.Status {
	case StatusApproved, StatusDisputed:
		return true
	default:
		return false
	}
}
