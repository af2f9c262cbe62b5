package ports

import (
	"context"
	"time"

	"gymclass/internal/model"
)

// UserDirectory resolves trainers and members. Identity management is
// external to this engine; only lookups happen here.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// EntitlementChecker answers whether a member's plan covers a class
// starting at the given instant. Billing owns the answer; booking only
// consumes it. A nil error means entitled.
type EntitlementChecker interface {
	CheckEntitlement(ctx context.Context, memberID int64, classStart time.Time) error
}

// Notifier delivers fire-and-forget notifications. Implementations must
// never fail the calling operation; delivery errors are logged and dropped.
type Notifier interface {
	NotifyClassCreated(ctx context.Context, trainer *model.User, tpl *model.ClassTemplate, occurrences []*model.ClassOccurrence)
	NotifyBookingConfirmed(ctx context.Context, member *model.User, occ *model.ClassOccurrence)
	NotifyBookingCancelled(ctx context.Context, member *model.User, occ *model.ClassOccurrence)
}

// ScheduleCache is the read-through cache over listings and detail reads.
// It is staleness-tolerant: writers invalidate best-effort and readers must
// not assume read-after-write consistency. Admission and conflict decisions
// never go through it.
type ScheduleCache interface {
	GetOccurrence(id int64) (*model.ClassOccurrence, bool)
	SetOccurrence(occ *model.ClassOccurrence)
	GetListing(key string) ([]*model.ClassOccurrence, bool)
	SetListing(key string, items []*model.ClassOccurrence)
	InvalidateOccurrence(id int64)
	InvalidateListings()
}
