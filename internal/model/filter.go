package model

import "time"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// OccurrenceFilter narrows class listings. Zero values mean "no filter".
type OccurrenceFilter struct {
	From      *time.Time
	To        *time.Time
	TrainerID int64
	Category  string
	Page      int
	PageSize  int
}

// Normalize clamps pagination to sane bounds.
func (f OccurrenceFilter) Normalize() OccurrenceFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

func (f OccurrenceFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
