// Package servicetest holds in-memory fakes for the service ports, shared
// by the service and handler test suites.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"gymclass/internal/model"
	"gymclass/internal/service/ports"
)

// Store is an in-memory ports.Store. Within holds one big lock for the
// whole callback and restores a snapshot on error, which models both the
// row-lock serialization and the rollback behavior of the real store.
type Store struct {
	mu             sync.Mutex
	TemplateRows   map[int64]*model.ClassTemplate
	OccurrenceRows map[int64]*model.ClassOccurrence
	BookingRows    map[int64]*model.Booking
	nextID         int64
}

func NewStore() *Store {
	return &Store{
		TemplateRows:   make(map[int64]*model.ClassTemplate),
		OccurrenceRows: make(map[int64]*model.ClassOccurrence),
		BookingRows:    make(map[int64]*model.Booking),
	}
}

func (f *Store) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *Store) Templates() ports.TemplateRepo     { return &templateRepo{f} }
func (f *Store) Occurrences() ports.OccurrenceRepo { return &occurrenceRepo{f} }
func (f *Store) Bookings() ports.BookingRepo       { return &bookingRepo{f} }

func (f *Store) Within(ctx context.Context, fn func(ctx context.Context, s ports.Store) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapTemplates := make(map[int64]*model.ClassTemplate, len(f.TemplateRows))
	for k, v := range f.TemplateRows {
		c := *v
		snapTemplates[k] = &c
	}
	snapOccurrences := make(map[int64]*model.ClassOccurrence, len(f.OccurrenceRows))
	for k, v := range f.OccurrenceRows {
		c := *v
		snapOccurrences[k] = &c
	}
	snapBookings := make(map[int64]*model.Booking, len(f.BookingRows))
	for k, v := range f.BookingRows {
		c := *v
		snapBookings[k] = &c
	}
	snapNextID := f.nextID

	if err := fn(ctx, f); err != nil {
		f.TemplateRows = snapTemplates
		f.OccurrenceRows = snapOccurrences
		f.BookingRows = snapBookings
		f.nextID = snapNextID
		return err
	}
	return nil
}

// Seed helpers, callable outside Within.

func (f *Store) SeedTemplate(tpl *model.ClassTemplate) *model.ClassTemplate {
	tpl.ID = f.id()
	f.TemplateRows[tpl.ID] = tpl
	return tpl
}

func (f *Store) SeedOccurrence(occ *model.ClassOccurrence) *model.ClassOccurrence {
	occ.ID = f.id()
	f.OccurrenceRows[occ.ID] = occ
	return occ
}

func (f *Store) SeedBooking(b *model.Booking) *model.Booking {
	b.ID = f.id()
	f.BookingRows[b.ID] = b
	return b
}

type templateRepo struct{ f *Store }

func (r *templateRepo) Create(_ context.Context, tpl *model.ClassTemplate) error {
	tpl.ID = r.f.id()
	tpl.CreatedAt = time.Now()
	tpl.UpdatedAt = tpl.CreatedAt
	r.f.TemplateRows[tpl.ID] = tpl
	return nil
}

func (r *templateRepo) GetByID(_ context.Context, id int64) (*model.ClassTemplate, error) {
	tpl, ok := r.f.TemplateRows[id]
	if !ok {
		return nil, nil
	}
	c := *tpl
	return &c, nil
}

func (r *templateRepo) Update(_ context.Context, tpl *model.ClassTemplate) error {
	if _, ok := r.f.TemplateRows[tpl.ID]; !ok {
		return &model.NotFoundError{Resource: "class template", ID: tpl.ID}
	}
	c := *tpl
	r.f.TemplateRows[tpl.ID] = &c
	return nil
}

type occurrenceRepo struct{ f *Store }

func (r *occurrenceRepo) Create(_ context.Context, occ *model.ClassOccurrence) error {
	occ.ID = r.f.id()
	occ.CreatedAt = time.Now()
	occ.UpdatedAt = occ.CreatedAt
	c := *occ
	r.f.OccurrenceRows[occ.ID] = &c
	return nil
}

func (r *occurrenceRepo) GetByID(_ context.Context, id int64) (*model.ClassOccurrence, error) {
	occ, ok := r.f.OccurrenceRows[id]
	if !ok {
		return nil, nil
	}
	c := *occ
	if tpl, ok := r.f.TemplateRows[occ.TemplateID]; ok {
		t := *tpl
		c.Template = &t
	}
	return &c, nil
}

func (r *occurrenceRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.ClassOccurrence, error) {
	occ, ok := r.f.OccurrenceRows[id]
	if !ok {
		return nil, nil
	}
	c := *occ
	return &c, nil
}

// LockTrainerSchedule is a no-op: Within already holds the store-wide lock.
func (r *occurrenceRepo) LockTrainerSchedule(context.Context, int64) error {
	return nil
}

func (r *occurrenceRepo) ListActiveByTemplate(_ context.Context, templateID int64) ([]*model.ClassOccurrence, error) {
	var out []*model.ClassOccurrence
	for _, occ := range r.f.OccurrenceRows {
		if occ.TemplateID != templateID || !occ.IsActive {
			continue
		}
		c := *occ
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *occurrenceRepo) Update(_ context.Context, occ *model.ClassOccurrence) error {
	if _, ok := r.f.OccurrenceRows[occ.ID]; !ok {
		return &model.NotFoundError{Resource: "occurrence", ID: occ.ID}
	}
	c := *occ
	c.Template = nil
	r.f.OccurrenceRows[occ.ID] = &c
	return nil
}

func (r *occurrenceRepo) SetActive(_ context.Context, id int64, active bool) error {
	occ, ok := r.f.OccurrenceRows[id]
	if !ok {
		return &model.NotFoundError{Resource: "occurrence", ID: id}
	}
	occ.IsActive = active
	return nil
}

func (r *occurrenceRepo) HasTrainerOverlap(_ context.Context, trainerID int64, start, end time.Time, excludeID int64) (bool, error) {
	for _, occ := range r.f.OccurrenceRows {
		if occ.TrainerID != trainerID || !occ.IsActive || occ.ID == excludeID {
			continue
		}
		if occ.StartTime.Before(end) && occ.EndTime.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *occurrenceRepo) List(_ context.Context, filter model.OccurrenceFilter) ([]*model.ClassOccurrence, error) {
	filter = filter.Normalize()

	var out []*model.ClassOccurrence
	for _, occ := range r.f.OccurrenceRows {
		if !occ.IsActive {
			continue
		}
		if filter.TrainerID != 0 && occ.TrainerID != filter.TrainerID {
			continue
		}
		tpl := r.f.TemplateRows[occ.TemplateID]
		if filter.Category != "" && (tpl == nil || tpl.Category != filter.Category) {
			continue
		}
		if filter.From != nil && occ.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !occ.StartTime.Before(*filter.To) {
			continue
		}
		c := *occ
		if tpl != nil {
			t := *tpl
			c.Template = &t
		}
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })

	offset := filter.Offset()
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > filter.PageSize {
		out = out[:filter.PageSize]
	}
	return out, nil
}

type bookingRepo struct{ f *Store }

func (r *bookingRepo) Create(_ context.Context, b *model.Booking) error {
	for _, existing := range r.f.BookingRows {
		if existing.MemberID == b.MemberID && existing.OccurrenceID == b.OccurrenceID {
			return model.ErrDuplicateBooking
		}
	}
	b.ID = r.f.id()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	c := *b
	r.f.BookingRows[b.ID] = &c
	return nil
}

func (r *bookingRepo) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	b, ok := r.f.BookingRows[id]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (r *bookingRepo) GetByMemberAndOccurrence(_ context.Context, memberID, occurrenceID int64) (*model.Booking, error) {
	for _, b := range r.f.BookingRows {
		if b.MemberID == memberID && b.OccurrenceID == occurrenceID {
			c := *b
			return &c, nil
		}
	}
	return nil, nil
}

func (r *bookingRepo) UpdateStatus(_ context.Context, id int64, status model.BookingStatus) error {
	b, ok := r.f.BookingRows[id]
	if !ok {
		return &model.NotFoundError{Resource: "booking", ID: id}
	}
	b.Status = status
	return nil
}

func (r *bookingRepo) CountConfirmed(_ context.Context, occurrenceID int64) (int, error) {
	count := 0
	for _, b := range r.f.BookingRows {
		if b.OccurrenceID == occurrenceID && b.Status == model.BookingStatusConfirmed {
			count++
		}
	}
	return count, nil
}

func (r *bookingRepo) ListByMember(_ context.Context, memberID int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range r.f.BookingRows {
		if b.MemberID == memberID {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Users is a static ports.UserDirectory.
type Users struct {
	users map[int64]*model.User
}

func NewUsers(users ...*model.User) *Users {
	m := make(map[int64]*model.User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &Users{users: m}
}

func (f *Users) GetByID(_ context.Context, id int64) (*model.User, error) {
	return f.users[id], nil
}

// Entitlements returns Err for every check; nil means entitled.
type Entitlements struct {
	Err error
}

func (f *Entitlements) CheckEntitlement(context.Context, int64, time.Time) error {
	return f.Err
}

// Notifier counts deliveries.
type Notifier struct {
	Mu             sync.Mutex
	ClassesCreated int
	Confirmed      int
	Cancelled      int
}

func (f *Notifier) NotifyClassCreated(context.Context, *model.User, *model.ClassTemplate, []*model.ClassOccurrence) {
	f.Mu.Lock()
	f.ClassesCreated++
	f.Mu.Unlock()
}

func (f *Notifier) NotifyBookingConfirmed(context.Context, *model.User, *model.ClassOccurrence) {
	f.Mu.Lock()
	f.Confirmed++
	f.Mu.Unlock()
}

func (f *Notifier) NotifyBookingCancelled(context.Context, *model.User, *model.ClassOccurrence) {
	f.Mu.Lock()
	f.Cancelled++
	f.Mu.Unlock()
}

// Cache is a ports.ScheduleCache that also counts invalidations.
type Cache struct {
	mu                     sync.Mutex
	occurrences            map[int64]*model.ClassOccurrence
	listings               map[string][]*model.ClassOccurrence
	OccurrenceInvalidation int
	ListingInvalidation    int
}

func NewCache() *Cache {
	return &Cache{
		occurrences: make(map[int64]*model.ClassOccurrence),
		listings:    make(map[string][]*model.ClassOccurrence),
	}
}

func (f *Cache) GetOccurrence(id int64) (*model.ClassOccurrence, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	occ, ok := f.occurrences[id]
	return occ, ok
}

func (f *Cache) SetOccurrence(occ *model.ClassOccurrence) {
	f.mu.Lock()
	f.occurrences[occ.ID] = occ
	f.mu.Unlock()
}

func (f *Cache) GetListing(key string) ([]*model.ClassOccurrence, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.listings[key]
	return items, ok
}

func (f *Cache) SetListing(key string, items []*model.ClassOccurrence) {
	f.mu.Lock()
	f.listings[key] = items
	f.mu.Unlock()
}

func (f *Cache) InvalidateOccurrence(id int64) {
	f.mu.Lock()
	delete(f.occurrences, id)
	f.OccurrenceInvalidation++
	f.mu.Unlock()
}

func (f *Cache) InvalidateListings() {
	f.mu.Lock()
	f.listings = make(map[string][]*model.ClassOccurrence)
	f.ListingInvalidation++
	f.mu.Unlock()
}
