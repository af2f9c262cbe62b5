package model

import (
	"time"

	"github.com/google/uuid"
)

// ClassTemplate describes a class offering. Concrete scheduled instances
// are ClassOccurrences; the template holds everything occurrences share.
type ClassTemplate struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	DurationMinutes int       `json:"duration_minutes"`
	Capacity        int       `json:"capacity"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ClassOccurrence is one concrete scheduled instance of a class: a specific
// trainer at a specific time. Occurrences created from one recurrence rule
// share a GroupID.
type ClassOccurrence struct {
	ID         int64      `json:"id"`
	TemplateID int64      `json:"template_id"`
	TrainerID  int64      `json:"trainer_id"`
	GroupID    uuid.UUID  `json:"group_id"`
	Weekdays   WeekdaySet `json:"weekdays"` // weekday set of the generating rule
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Filled by joined reads, not stored on the occurrence row.
	Template *ClassTemplate `json:"template,omitempty"`
	Trainer  *User          `json:"trainer,omitempty"`
}
