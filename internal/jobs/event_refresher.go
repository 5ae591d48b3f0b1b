package jobs

import (
	"context"
	"log"
	"time"

	"sportsbook/internal/sportsfeed"
)

// EventRefresher keeps the event cache's live and upcoming snapshots fresh.
// A failed poll leaves the previous snapshot in place; the freshness gate
// then denies wagers on its own once the snapshot ages past the threshold.
type EventRefresher struct {
	client           *sportsfeed.Client
	cache            *sportsfeed.EventCache
	sport            string
	liveInterval     time.Duration
	upcomingInterval time.Duration
	stopChan         chan struct{}
}

// NewEventRefresher creates a new event cache refresher job
func NewEventRefresher(
	client *sportsfeed.Client,
	cache *sportsfeed.EventCache,
	sport string,
	liveInterval time.Duration,
	upcomingInterval time.Duration,
) *EventRefresher {
	return &EventRefresher{
		client:           client,
		cache:            cache,
		sport:            sport,
		liveInterval:     liveInterval,
		upcomingInterval: upcomingInterval,
		stopChan:         make(chan struct{}),
	}
}

// Start begins the refresh loops. Live and upcoming refresh on separate
// cadences because their staleness tolerances differ by an order of
// magnitude.
func (er *EventRefresher) Start() {
	log.Printf("[EventRefresher] Starting event refresher (live: %v, upcoming: %v)", er.liveInterval, er.upcomingInterval)

	// Populate both snapshots before the first tick.
	er.refreshLive()
	er.refreshUpcoming()

	liveTicker := time.NewTicker(er.liveInterval)
	defer liveTicker.Stop()
	upcomingTicker := time.NewTicker(er.upcomingInterval)
	defer upcomingTicker.Stop()

	for {
		select {
		case <-liveTicker.C:
			er.refreshLive()
		case <-upcomingTicker.C:
			er.refreshUpcoming()
		case <-er.stopChan:
			log.Println("[EventRefresher] Stopping event refresher")
			return
		}
	}
}

// Stop stops the refresh loops
func (er *EventRefresher) Stop() {
	close(er.stopChan)
}

func (er *EventRefresher) refreshLive() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	entries, err := er.client.GetLiveEvents(ctx, er.sport)
	if err != nil {
		log.Printf("[EventRefresher] Error fetching live events: %v", err)
		return
	}

	er.cache.SetLive(entries)
}

func (er *EventRefresher) refreshUpcoming() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	entries, err := er.client.GetUpcomingEvents(ctx, er.sport)
	if err != nil {
		log.Printf("[EventRefresher] Error fetching upcoming events: %v", err)
		return
	}

	er.cache.SetUpcoming(entries)
}
