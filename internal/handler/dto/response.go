package dto

import (
	"time"

	"gymclass/internal/model"
)

type ClassResponse struct {
	ID             int64     `json:"id"`
	TemplateID     int64     `json:"template_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	TrainerID      int64     `json:"trainer_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Capacity       int       `json:"capacity"`
	RemainingSeats *int      `json:"remaining_seats,omitempty"`
	IsActive       bool      `json:"is_active"`
}

func NewClassResponse(occ *model.ClassOccurrence) ClassResponse {
	resp := ClassResponse{
		ID:         occ.ID,
		TemplateID: occ.TemplateID,
		TrainerID:  occ.TrainerID,
		StartTime:  occ.StartTime,
		EndTime:    occ.EndTime,
		IsActive:   occ.IsActive,
	}
	if occ.Template != nil {
		resp.Name = occ.Template.Name
		resp.Description = occ.Template.Description
		resp.Category = occ.Template.Category
		resp.Capacity = occ.Template.Capacity
	}
	return resp
}

func NewClassListResponse(occurrences []*model.ClassOccurrence) []ClassResponse {
	out := make([]ClassResponse, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, NewClassResponse(occ))
	}
	return out
}

type CreateClassResponse struct {
	TemplateID int64           `json:"template_id"`
	Classes    []ClassResponse `json:"classes"`
}

type BookingResponse struct {
	ID           int64     `json:"id"`
	MemberID     int64     `json:"member_id"`
	OccurrenceID int64     `json:"occurrence_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewBookingResponse(b *model.Booking) BookingResponse {
	return BookingResponse{
		ID:           b.ID,
		MemberID:     b.MemberID,
		OccurrenceID: b.OccurrenceID,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func NewBookingListResponse(bookings []*model.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, NewBookingResponse(b))
	}
	return out
}

type ErrorResponse struct {
	Error string `json:"error"`
}
