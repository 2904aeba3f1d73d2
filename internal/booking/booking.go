package booking

import (
	"time"

	"github.com/bodaconnect/review-service/internal/domain"
)

// StatusCompleted is the booking lifecycle state that permits reviews.
const StatusCompleted = "completed"

// Booking is the slice of the Booking Service's record that review
// validation needs.
type Booking struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id"`
	SupplierID      string    `json:"supplier_id"`
	Status          string    `json:"status"`
	ServiceCategory string    `json:"service_category"`
	ServiceDate     time.Time `json:"service_date"`
}

// IsCompleted reports whether the booking may be reviewed.
func (b *Booking) IsCompleted() bool {
	return b.Status == StatusCompleted
}

// PartyRole returns the role the user plays in this booking, or false if
// the user is not one of its two parties.
func (b *Booking) PartyRole(userID string) (string, bool) {
	switch userID {
	case b.ClientID:
		return domain.RoleClient, true
	case b.SupplierID:
		return domain.RoleSupplier, true
	default:
		return "", false
	}
}

// Counterpart returns the other party of the booking relative to the given
// user: the supplier for the client and vice versa.
func (b *Booking) Counterpart(userID string) (id, role string, ok bool) {
	switch userID {
	case b.ClientID:
		return b.SupplierID, domain.RoleSupplier, true
	case b.SupplierID:
		return b.ClientID, domain.RoleClient, true
	default:
		return "", "", false
	}
}
