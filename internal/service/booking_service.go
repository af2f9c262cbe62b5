package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gymclass/internal/model"
	"gymclass/internal/service/ports"
)

// BookingService governs the per (member, occurrence) enrollment state
// machine. The capacity check and the booking write always share one store
// transaction with the occurrence row locked first; two members racing for
// the last seat are serialized there, never oversold.
type BookingService struct {
	store        ports.Store
	users        ports.UserDirectory
	entitlements ports.EntitlementChecker
	cache        ports.ScheduleCache
	notifier     ports.Notifier
	logger       *zap.Logger
}

func NewBookingService(
	store ports.Store,
	users ports.UserDirectory,
	entitlements ports.EntitlementChecker,
	cache ports.ScheduleCache,
	notifier ports.Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		store:        store,
		users:        users,
		entitlements: entitlements,
		cache:        cache,
		notifier:     notifier,
		logger:       logger,
	}
}

// BookClass enrolls a member into an occurrence. A CANCELLED row for the
// pair is reconfirmed instead of inserting a second row; capacity and
// entitlement are re-checked in full on that path.
func (s *BookingService) BookClass(ctx context.Context, memberID, occurrenceID int64, caller model.Principal) (*model.Booking, error) {
	if !caller.IsStaff() && caller.ID != memberID {
		return nil, fmt.Errorf("caller %d cannot book for member %d: %w", caller.ID, memberID, model.ErrForbidden)
	}

	member, err := s.users.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if member == nil {
		return nil, &model.NotFoundError{Resource: "member", ID: memberID}
	}

	var (
		booking    *model.Booking
		occurrence *model.ClassOccurrence
	)

	err = s.store.Within(ctx, func(ctx context.Context, st ports.Store) error {
		// The row lock serializes concurrent bookings for this occurrence
		// until commit.
		occ, err := st.Occurrences().GetByIDForUpdate(ctx, occurrenceID)
		if err != nil {
			return err
		}
		if occ == nil {
			return &model.NotFoundError{Resource: "occurrence", ID: occurrenceID}
		}
		if !occ.IsActive {
			return fmt.Errorf("%w: class occurrence %d is inactive", model.ErrValidation, occurrenceID)
		}
		occurrence = occ

		if err := s.entitlements.CheckEntitlement(ctx, memberID, occ.StartTime); err != nil {
			return err
		}

		existing, err := st.Bookings().GetByMemberAndOccurrence(ctx, memberID, occurrenceID)
		if err != nil {
			return err
		}
		if existing != nil && existing.IsConfirmed() {
			return model.ErrDuplicateBooking
		}

		tpl, err := st.Templates().GetByID(ctx, occ.TemplateID)
		if err != nil {
			return err
		}
		if tpl == nil {
			return &model.NotFoundError{Resource: "class template", ID: occ.TemplateID}
		}

		confirmed, err := st.Bookings().CountConfirmed(ctx, occurrenceID)
		if err != nil {
			return err
		}
		if tpl.Capacity-confirmed <= 0 {
			return model.ErrCapacityExceeded
		}

		if existing != nil {
			// Reuse the cancelled row, keeping one row per pair.
			if err := st.Bookings().UpdateStatus(ctx, existing.ID, model.BookingStatusConfirmed); err != nil {
				return err
			}
			existing.Status = model.BookingStatusConfirmed
			booking = existing
			return nil
		}

		booking = &model.Booking{
			MemberID:     memberID,
			OccurrenceID: occurrenceID,
			Status:       model.BookingStatusConfirmed,
		}
		return st.Bookings().Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("class booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("member_id", memberID),
		zap.Int64("occurrence_id", occurrenceID),
	)

	go s.notifier.NotifyBookingConfirmed(context.WithoutCancel(ctx), member, occurrence)
	s.cache.InvalidateOccurrence(occurrenceID)
	s.cache.InvalidateListings()

	return booking, nil
}

// CancelBooking flips a CONFIRMED booking to CANCELLED. Only the owner or
// staff may cancel; the row is kept for history.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, caller model.Principal) error {
	var cancelled *model.Booking

	err := s.store.Within(ctx, func(ctx context.Context, st ports.Store) error {
		b, err := st.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return &model.NotFoundError{Resource: "booking", ID: bookingID}
		}

		if !caller.IsStaff() && caller.ID != b.MemberID {
			return fmt.Errorf("caller %d does not own booking %d: %w", caller.ID, bookingID, model.ErrForbidden)
		}
		if b.IsCancelled() {
			return model.ErrAlreadyCancelled
		}

		if err := st.Bookings().UpdateStatus(ctx, b.ID, model.BookingStatusCancelled); err != nil {
			return err
		}
		b.Status = model.BookingStatusCancelled
		cancelled = b
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("member_id", cancelled.MemberID),
	)

	s.notifyCancelled(ctx, cancelled)
	s.cache.InvalidateOccurrence(cancelled.OccurrenceID)
	s.cache.InvalidateListings()

	return nil
}

// RemainingSeats reports authoritative free capacity, always from the
// store, never the cache.
func (s *BookingService) RemainingSeats(ctx context.Context, occurrenceID int64) (int, error) {
	occ, err := s.store.Occurrences().GetByID(ctx, occurrenceID)
	if err != nil {
		return 0, err
	}
	if occ == nil {
		return 0, &model.NotFoundError{Resource: "occurrence", ID: occurrenceID}
	}

	confirmed, err := s.store.Bookings().CountConfirmed(ctx, occurrenceID)
	if err != nil {
		return 0, err
	}

	remaining := occ.Template.Capacity - confirmed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ListMemberBookings returns a member's booking history, own or staff only.
func (s *BookingService) ListMemberBookings(ctx context.Context, memberID int64, caller model.Principal) ([]*model.Booking, error) {
	if !caller.IsStaff() && caller.ID != memberID {
		return nil, fmt.Errorf("caller %d cannot list bookings of member %d: %w", caller.ID, memberID, model.ErrForbidden)
	}
	return s.store.Bookings().ListByMember(ctx, memberID)
}

// notifyCancelled resolves the notification targets best-effort; a failed
// lookup only skips the message.
func (s *BookingService) notifyCancelled(ctx context.Context, b *model.Booking) {
	member, err := s.users.GetByID(ctx, b.MemberID)
	if err != nil || member == nil {
		s.logger.Warn("skipping cancel notification, member lookup failed",
			zap.Int64("member_id", b.MemberID),
			zap.Error(err),
		)
		return
	}

	occ, err := s.store.Occurrences().GetByID(ctx, b.OccurrenceID)
	if err != nil || occ == nil {
		s.logger.Warn("skipping cancel notification, occurrence lookup failed",
			zap.Int64("occurrence_id", b.OccurrenceID),
			zap.Error(err),
		)
		return
	}

	go s.notifier.NotifyBookingCancelled(context.WithoutCancel(ctx), member, occ)
}
