package repository

import (
	"context"
	"fmt"

	"gymclass/internal/model"
	"gymclass/internal/repository/base"
)

type BookingRepository struct {
	db base.Querier
}

func NewBookingRepository(db base.Querier) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a booking row. The unique (member_id, occurrence_id) index
// backs the one-row-per-pair invariant; a violation surfaces as
// ErrDuplicateBooking.
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	query := `
		INSERT INTO bookings (member_id, occurrence_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		b.MemberID,
		b.OccurrenceID,
		b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return model.ErrDuplicateBooking
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID returns the booking or nil when the id is unknown.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `
		SELECT id, member_id, occurrence_id, status, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var b model.Booking
	err := r.db.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.MemberID,
		&b.OccurrenceID,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return &b, nil
}

// GetByMemberAndOccurrence returns the single booking row for the pair, in
// any status, or nil when none exists.
func (r *BookingRepository) GetByMemberAndOccurrence(ctx context.Context, memberID, occurrenceID int64) (*model.Booking, error) {
	query := `
		SELECT id, member_id, occurrence_id, status, created_at, updated_at
		FROM bookings
		WHERE member_id = $1 AND occurrence_id = $2
	`

	var b model.Booking
	err := r.db.QueryRow(ctx, query, memberID, occurrenceID).Scan(
		&b.ID,
		&b.MemberID,
		&b.OccurrenceID,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by member and occurrence: %w", err)
	}

	return &b, nil
}

// UpdateStatus transitions a booking. Rows are never deleted; cancellation
// is a status change.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = now()
		WHERE id = $2
	`

	affected, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if affected.RowsAffected() == 0 {
		return &model.NotFoundError{Resource: "booking", ID: id}
	}

	return nil
}

// CountConfirmed counts confirmed bookings for one occurrence. Admission
// control reads this inside the booking transaction, after the occurrence
// row lock is held.
func (r *BookingRepository) CountConfirmed(ctx context.Context, occurrenceID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE occurrence_id = $1 AND status = $2
	`

	var count int
	err := r.db.QueryRow(ctx, query, occurrenceID, model.BookingStatusConfirmed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count confirmed bookings: %w", err)
	}

	return count, nil
}

// ListByMember returns every booking of a member, newest first.
func (r *BookingRepository) ListByMember(ctx context.Context, memberID int64) ([]*model.Booking, error) {
	query := `
		SELECT id, member_id, occurrence_id, status, created_at, updated_at
		FROM bookings
		WHERE member_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by member: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		var b model.Booking
		err := rows.Scan(
			&b.ID,
			&b.MemberID,
			&b.OccurrenceID,
			&b.Status,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, &b)
	}

	return bookings, rows.Err()
}
