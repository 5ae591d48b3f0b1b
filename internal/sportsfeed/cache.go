package sportsfeed

import (
	"sync/atomic"
	"time"

	"sportsbook/internal/models"
)

// EventSnapshot is an immutable view of one feed poll. Snapshots are replaced
// wholesale on each successful refresh; readers never see a partial update.
type EventSnapshot struct {
	Entries     map[string]models.EventEntry
	RefreshedAt time.Time
}

// Lookup returns the entry for an event id, if present.
func (s *EventSnapshot) Lookup(eventID string) (models.EventEntry, bool) {
	entry, ok := s.Entries[eventID]
	return entry, ok
}

// EventCache holds the two timestamped snapshots (live and upcoming) the
// freshness gate reads. The whole snapshot value is swapped atomically.
type EventCache struct {
	live     atomic.Value // *EventSnapshot
	upcoming atomic.Value // *EventSnapshot
}

func NewEventCache() *EventCache {
	return &EventCache{}
}

// SetLive replaces the live snapshot.
func (c *EventCache) SetLive(entries []models.EventEntry) {
	c.live.Store(buildSnapshot(entries))
}

// SetUpcoming replaces the upcoming snapshot.
func (c *EventCache) SetUpcoming(entries []models.EventEntry) {
	c.upcoming.Store(buildSnapshot(entries))
}

// LiveSnapshot returns the current live snapshot, or false if the cache has
// never been populated.
func (c *EventCache) LiveSnapshot() (*EventSnapshot, bool) {
	snap, ok := c.live.Load().(*EventSnapshot)
	return snap, ok
}

// UpcomingSnapshot returns the current upcoming snapshot, or false if the
// cache has never been populated.
func (c *EventCache) UpcomingSnapshot() (*EventSnapshot, bool) {
	snap, ok := c.upcoming.Load().(*EventSnapshot)
	return snap, ok
}

func buildSnapshot(entries []models.EventEntry) *EventSnapshot {
	m := make(map[string]models.EventEntry, len(entries))
	for _, e := range entries {
		m[e.EventID] = e
	}
	return &EventSnapshot{
		Entries:     m,
		RefreshedAt: time.Now(),
	}
}
