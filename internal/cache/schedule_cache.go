package cache

import (
	"sync"
	"time"

	"gymclass/internal/model"
)

// ScheduleCache is a process-local TTL cache over schedule reads. Entries
// expire passively on read; writers invalidate best-effort, so reads may be
// stale for up to the TTL. Admission and conflict decisions must not go
// through it.
type ScheduleCache struct {
	mu          sync.RWMutex
	ttl         time.Duration
	occurrences map[int64]entry[*model.ClassOccurrence]
	listings    map[string]entry[[]*model.ClassOccurrence]
	now         func() time.Time
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

func New(ttl time.Duration) *ScheduleCache {
	return &ScheduleCache{
		ttl:         ttl,
		occurrences: make(map[int64]entry[*model.ClassOccurrence]),
		listings:    make(map[string]entry[[]*model.ClassOccurrence]),
		now:         time.Now,
	}
}

func (c *ScheduleCache) GetOccurrence(id int64) (*model.ClassOccurrence, bool) {
	c.mu.RLock()
	e, ok := c.occurrences[id]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *ScheduleCache) SetOccurrence(occ *model.ClassOccurrence) {
	c.mu.Lock()
	c.occurrences[occ.ID] = entry[*model.ClassOccurrence]{value: occ, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *ScheduleCache) GetListing(key string) ([]*model.ClassOccurrence, bool) {
	c.mu.RLock()
	e, ok := c.listings[key]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *ScheduleCache) SetListing(key string, items []*model.ClassOccurrence) {
	c.mu.Lock()
	c.listings[key] = entry[[]*model.ClassOccurrence]{value: items, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *ScheduleCache) InvalidateOccurrence(id int64) {
	c.mu.Lock()
	delete(c.occurrences, id)
	c.mu.Unlock()
}

// InvalidateListings drops every listing entry. Listing keys encode filter
// combinations, so per-entry matching is not worth the bookkeeping.
func (c *ScheduleCache) InvalidateListings() {
	c.mu.Lock()
	c.listings = make(map[string]entry[[]*model.ClassOccurrence])
	c.mu.Unlock()
}
