package ports

import (
	"context"
	"time"

	"gymclass/internal/model"
)

// Store is the persistence boundary. Within runs fn against transaction-
// bound repositories: fn returning an error rolls everything back, so a
// multi-row write (template plus its expanded occurrences, or a capacity
// check plus the booking row) either lands fully or not at all.
//
// Calling Within on an already transaction-bound Store joins the open
// transaction.
type Store interface {
	Templates() TemplateRepo
	Occurrences() OccurrenceRepo
	Bookings() BookingRepo

	Within(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

type TemplateRepo interface {
	Create(ctx context.Context, tpl *model.ClassTemplate) error
	GetByID(ctx context.Context, id int64) (*model.ClassTemplate, error)
	Update(ctx context.Context, tpl *model.ClassTemplate) error
}

type OccurrenceRepo interface {
	Create(ctx context.Context, occ *model.ClassOccurrence) error
	// GetByID returns the occurrence with its template joined, or nil when
	// the id is unknown.
	GetByID(ctx context.Context, id int64) (*model.ClassOccurrence, error)
	// GetByIDForUpdate locks the occurrence row for the rest of the
	// transaction, serializing concurrent bookings for one occurrence.
	GetByIDForUpdate(ctx context.Context, id int64) (*model.ClassOccurrence, error)
	// ListActiveByTemplate returns the template's active occurrences,
	// locked when called inside a transaction.
	ListActiveByTemplate(ctx context.Context, templateID int64) ([]*model.ClassOccurrence, error)
	Update(ctx context.Context, occ *model.ClassOccurrence) error
	SetActive(ctx context.Context, id int64, active bool) error
	// LockTrainerSchedule serializes schedule writes for one trainer
	// until the surrounding transaction ends.
	LockTrainerSchedule(ctx context.Context, trainerID int64) error
	// HasTrainerOverlap reports whether any active occurrence of the
	// trainer overlaps (start, end), ignoring excludeID when non-zero.
	HasTrainerOverlap(ctx context.Context, trainerID int64, start, end time.Time, excludeID int64) (bool, error)
	List(ctx context.Context, filter model.OccurrenceFilter) ([]*model.ClassOccurrence, error)
}

type BookingRepo interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetByMemberAndOccurrence(ctx context.Context, memberID, occurrenceID int64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error
	CountConfirmed(ctx context.Context, occurrenceID int64) (int, error)
	ListByMember(ctx context.Context, memberID int64) ([]*model.Booking, error)
}
