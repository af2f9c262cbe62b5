package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gymclass/internal/model"
	"gymclass/internal/service/servicetest"
)

func newBookingFixture(capacity int) (*BookingService, *servicetest.Store, *model.ClassOccurrence, *servicetest.Entitlements, *servicetest.Notifier, *servicetest.Cache) {
	store := servicetest.NewStore()
	users := servicetest.NewUsers(trainerTom, memberAlice, memberBob, staffOlga)
	entitlements := &servicetest.Entitlements{}
	cache := servicetest.NewCache()
	notifier := &servicetest.Notifier{}

	tpl := store.SeedTemplate(&model.ClassTemplate{Name: "Spin", DurationMinutes: 45, Capacity: capacity})
	occ := store.SeedOccurrence(&model.ClassOccurrence{
		TemplateID: tpl.ID,
		TrainerID:  trainerTom.ID,
		StartTime:  mondayAtSix,
		EndTime:    mondayAtSix.Add(45 * time.Minute),
		IsActive:   true,
	})

	svc := NewBookingService(store, users, entitlements, cache, notifier, zap.NewNop())
	return svc, store, occ, entitlements, notifier, cache
}

func TestBookingService_BookClass(t *testing.T) {
	svc, store, occ, _, notifier, cache := newBookingFixture(12)

	booking, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)

	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, memberAlice.ID, booking.MemberID)
	assert.Equal(t, occ.ID, booking.OccurrenceID)
	assert.Len(t, store.BookingRows, 1)
	assert.Equal(t, 1, cache.OccurrenceInvalidation)

	time.Sleep(50 * time.Millisecond) // goroutine notify
	notifier.Mu.Lock()
	assert.Equal(t, 1, notifier.Confirmed)
	notifier.Mu.Unlock()
}

func TestBookingService_BookClass_Authorization(t *testing.T) {
	svc, _, occ, _, _, _ := newBookingFixture(12)

	t.Run("member cannot book for another member", func(t *testing.T) {
		_, err := svc.BookClass(context.Background(), memberBob.ID, occ.ID, aliceCaller)
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("staff can book for any member", func(t *testing.T) {
		booking, err := svc.BookClass(context.Background(), memberBob.ID, occ.ID, staffCaller)
		require.NoError(t, err)
		assert.Equal(t, memberBob.ID, booking.MemberID)
	})
}

func TestBookingService_BookClass_OccurrenceChecks(t *testing.T) {
	svc, store, occ, _, _, _ := newBookingFixture(12)

	t.Run("unknown occurrence", func(t *testing.T) {
		_, err := svc.BookClass(context.Background(), memberAlice.ID, 999, aliceCaller)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := svc.BookClass(context.Background(), 999, occ.ID, staffCaller)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("inactive occurrence", func(t *testing.T) {
		store.OccurrenceRows[occ.ID].IsActive = false
		defer func() { store.OccurrenceRows[occ.ID].IsActive = true }()

		_, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestBookingService_BookClass_NotEntitled(t *testing.T) {
	svc, store, occ, entitlements, _, _ := newBookingFixture(12)
	entitlements.Err = model.ErrNotEntitled

	_, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotEntitled)
	assert.Empty(t, store.BookingRows)
}

func TestBookingService_BookClass_CapacityExceeded(t *testing.T) {
	svc, store, occ, _, _, _ := newBookingFixture(1)

	_, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
	require.NoError(t, err)

	bobCaller := model.Principal{ID: memberBob.ID, Role: model.RoleMember}
	_, err = svc.BookClass(context.Background(), memberBob.ID, occ.ID, bobCaller)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCapacityExceeded)
	assert.Len(t, store.BookingRows, 1)
}

func TestBookingService_BookClass_ConcurrentLastSeat(t *testing.T) {
	svc, store, occ, _, _, _ := newBookingFixture(1)

	callers := []model.Principal{
		{ID: memberAlice.ID, Role: model.RoleMember},
		{ID: memberBob.ID, Role: model.RoleMember},
	}

	errs := make([]error, len(callers))
	var wg sync.WaitGroup
	for i, caller := range callers {
		wg.Add(1)
		go func(i int, caller model.Principal) {
			defer wg.Done()
			_, errs[i] = svc.BookClass(context.Background(), caller.ID, occ.ID, caller)
		}(i, caller)
	}
	wg.Wait()

	successes, capacityFailures := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, model.ErrCapacityExceeded):
			capacityFailures++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, capacityFailures)

	confirmed, err := store.Bookings().CountConfirmed(context.Background(), occ.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)
}

func TestBookingService_BookClass_Duplicate(t *testing.T) {
	svc, store, occ, _, _, _ := newBookingFixture(12)

	_, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
	require.NoError(t, err)

	_, err = svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDuplicateBooking)
	assert.Len(t, store.BookingRows, 1)
}

func TestBookingService_CancelBooking(t *testing.T) {
	svc, store, occ, _, notifier, _ := newBookingFixture(12)

	booking, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
	require.NoError(t, err)

	require.NoError(t, svc.CancelBooking(context.Background(), booking.ID, aliceCaller))
	assert.Equal(t, model.BookingStatusCancelled, store.BookingRows[booking.ID].Status)

	time.Sleep(50 * time.Millisecond)
	notifier.Mu.Lock()
	assert.Equal(t, 1, notifier.Cancelled)
	notifier.Mu.Unlock()
}

func TestBookingService_CancelBooking_Errors(t *testing.T) {
	svc, _, occ, _, _, _ := newBookingFixture(12)

	booking, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
	require.NoError(t, err)

	t.Run("not the owner", func(t *testing.T) {
		bobCaller := model.Principal{ID: memberBob.ID, Role: model.RoleMember}
		err := svc.CancelBooking(context.Background(), booking.ID, bobCaller)
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("unknown booking", func(t *testing.T) {
		err := svc.CancelBooking(context.Background(), 999, aliceCaller)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("already cancelled", func(t *testing.T) {
		require.NoError(t, svc.CancelBooking(context.Background(), booking.ID, aliceCaller))
		err := svc.CancelBooking(context.Background(), booking.ID, aliceCaller)
		assert.ErrorIs(t, err, model.ErrAlreadyCancelled)
	})
}

func TestBookingService_CancelThenRebook(t *testing.T) {
	svc, store, occ, _, _, _ := newBookingFixture(12)

	first, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
	require.NoError(t, err)

	require.NoError(t, svc.CancelBooking(context.Background(), first.ID, aliceCaller))

	second, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
	require.NoError(t, err)

	// One row per (member, occurrence): the cancelled row was reused.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.BookingStatusConfirmed, second.Status)
	assert.Len(t, store.BookingRows, 1)
	assert.Equal(t, model.BookingStatusConfirmed, store.BookingRows[first.ID].Status)
}

func TestBookingService_RebookRechecksCapacity(t *testing.T) {
	svc, _, occ, _, _, _ := newBookingFixture(1)

	booking, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
	require.NoError(t, err)
	require.NoError(t, svc.CancelBooking(context.Background(), booking.ID, aliceCaller))

	// Bob takes the freed seat.
	bobCaller := model.Principal{ID: memberBob.ID, Role: model.RoleMember}
	_, err = svc.BookClass(context.Background(), memberBob.ID, occ.ID, bobCaller)
	require.NoError(t, err)

	// Alice's rebook must re-check capacity, not assume her earlier pass.
	_, err = svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
	assert.ErrorIs(t, err, model.ErrCapacityExceeded)
}

func TestBookingService_RemainingSeats(t *testing.T) {
	svc, _, occ, _, _, _ := newBookingFixture(2)

	remaining, err := svc.RemainingSeats(context.Background(), occ.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	_, err = svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
	require.NoError(t, err)

	remaining, err = svc.RemainingSeats(context.Background(), occ.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestBookingService_ListMemberBookings(t *testing.T) {
	svc, _, occ, _, _, _ := newBookingFixture(12)

	_, err := svc.BookClass(context.Background(), memberAlice.ID, occ.ID, aliceCaller)
	require.NoError(t, err)

	bookings, err := svc.ListMemberBookings(context.Background(), memberAlice.ID, aliceCaller)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)

	_, err = svc.ListMemberBookings(context.Background(), memberAlice.ID, model.Principal{ID: memberBob.ID, Role: model.RoleMember})
	assert.ErrorIs(t, err, model.ErrForbidden)
}
