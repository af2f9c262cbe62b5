package dto

import "time"

type CreateClassRequest struct {
	Name            string    `json:"name" validate:"required"`
	Description     string    `json:"description"`
	Category        string    `json:"category" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gt=0"`
	Capacity        int       `json:"capacity" validate:"required,gt=0"`
	TrainerID       int64     `json:"trainer_id" validate:"required"`
	ScheduleStart   time.Time `json:"schedule_start" validate:"required"`
	RecurrenceRule  string    `json:"recurrence_rule"`
	MaxOccurrences  int       `json:"max_occurrences" validate:"gte=0"`
}

// UpdateClassRequest carries partial edits; nil means "keep the old value".
type UpdateClassRequest struct {
	Name            *string    `json:"name"`
	Description     *string    `json:"description"`
	Category        *string    `json:"category"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,gt=0"`
	Capacity        *int       `json:"capacity" validate:"omitempty,gt=0"`
	TrainerID       *int64     `json:"trainer_id"`
	StartTime       *time.Time `json:"start_time"`
}

type BookClassRequest struct {
	MemberID     int64 `json:"member_id" validate:"required"`
	OccurrenceID int64 `json:"occurrence_id" validate:"required"`
}
