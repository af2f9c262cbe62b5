package model

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking ties a member to one class occurrence. At most one row exists per
// (member, occurrence) pair; cancellation flips the status and keeps the row.
type Booking struct {
	ID           int64         `json:"id"`
	MemberID     int64         `json:"member_id"`
	OccurrenceID int64         `json:"occurrence_id"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	// Filled by joined reads.
	Occurrence *ClassOccurrence `json:"occurrence,omitempty"`
	Member     *User            `json:"member,omitempty"`
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// Membership is what the entitlement check consumes. Billing owns these
// rows; this engine only reads them.
type Membership struct {
	ID         int64     `json:"id"`
	MemberID   int64     `json:"member_id"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m *Membership) CoversInstant(t time.Time) bool {
	return !t.Before(m.ValidFrom) && !t.After(m.ValidUntil)
}
