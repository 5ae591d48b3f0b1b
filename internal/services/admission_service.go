package services

import (
	"time"

	"sportsbook/internal/models"
	"sportsbook/internal/sportsfeed"
)

// Default admission thresholds. Live event state changes by the second, so
// its cache must be near-fresh; a scheduled match's pre-kickoff state changes
// slowly and tolerates a much older snapshot.
const (
	DefaultLiveMaxAge     = 60 * time.Second
	DefaultUpcomingMaxAge = 10 * time.Minute
	DefaultLateGameCutoff = 75
	DefaultHalfBoundary   = 45
)

// AdmissionGate is the fail-closed gate deciding whether a new wager is
// allowed, using only the locally cached event snapshots. It performs no
// writes and never trusts the caller's own liveness claim.
type AdmissionGate struct {
	cache          *sportsfeed.EventCache
	liveMaxAge     time.Duration
	upcomingMaxAge time.Duration
	lateGameCutoff int
	halfBoundary   int
}

func NewAdmissionGate(cache *sportsfeed.EventCache, liveMaxAge, upcomingMaxAge time.Duration) *AdmissionGate {
	if liveMaxAge <= 0 {
		liveMaxAge = DefaultLiveMaxAge
	}
	if upcomingMaxAge <= 0 {
		upcomingMaxAge = DefaultUpcomingMaxAge
	}
	return &AdmissionGate{
		cache:          cache,
		liveMaxAge:     liveMaxAge,
		upcomingMaxAge: upcomingMaxAge,
		lateGameCutoff: DefaultLateGameCutoff,
		halfBoundary:   DefaultHalfBoundary,
	}
}

// Admit decides whether a wager against eventID may be accepted right now.
// Every ambiguous case denies: availability of the gate is sacrificed in
// favor of never admitting an unverifiable wager.
func (g *AdmissionGate) Admit(eventID string, claimedLive bool, market string) models.Decision {
	live, liveOK := g.cache.LiveSnapshot()
	upcoming, upcomingOK := g.cache.UpcomingSnapshot()

	if !liveOK && !upcomingOK {
		// Cache never populated; deny everything.
		return deny(models.ReasonEventVerificationError)
	}

	var liveSnap, upcomingSnap *sportsfeed.EventSnapshot
	if liveOK {
		liveSnap = live
	}
	if upcomingOK {
		upcomingSnap = upcoming
	}

	return g.decide(liveSnap, upcomingSnap, eventID, claimedLive, market, time.Now())
}

// decide is the pure decision function over two immutable snapshots.
func (g *AdmissionGate) decide(
	live *sportsfeed.EventSnapshot,
	upcoming *sportsfeed.EventSnapshot,
	eventID string,
	claimedLive bool,
	market string,
	now time.Time,
) models.Decision {
	// The live snapshot is authoritative when it contains the event,
	// regardless of what the caller claims.
	if live != nil {
		if entry, ok := live.Lookup(eventID); ok {
			if now.Sub(live.RefreshedAt) > g.liveMaxAge {
				return deny(models.ReasonStaleEventData)
			}
			if entry.Elapsed == nil {
				// Never assume early-match state in the absence of data.
				return deny(models.ReasonUnverifiableMatchTime)
			}
			if *entry.Elapsed >= g.lateGameCutoff {
				return deny(models.ReasonMatchTimeExceeded)
			}
			if models.FirstHalfMarket(market) && *entry.Elapsed > g.halfBoundary {
				return deny(models.ReasonMatchTimeExceeded)
			}
			return models.Decision{Allowed: true}
		}
	}

	if upcoming != nil {
		if entry, ok := upcoming.Lookup(eventID); ok {
			if now.Sub(upcoming.RefreshedAt) > g.upcomingMaxAge {
				return deny(models.ReasonStaleEventData)
			}
			if !entry.StartTime.After(now) {
				// The match may have gone live without appearing in the
				// live snapshot yet; the caller's claim does not override.
				return deny(models.ReasonEventStatusUncertain)
			}
			return models.Decision{Allowed: true}
		}
	}

	if live == nil || upcoming == nil {
		// One side of the cache has never been populated; absence from the
		// other side alone cannot prove the event does not exist.
		return deny(models.ReasonEventVerificationError)
	}

	return deny(models.ReasonEventNotFound)
}

func deny(reason string) models.Decision {
	return models.Decision{Allowed: false, Reason: reason}
}
