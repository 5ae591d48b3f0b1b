package models

import "time"

type EventSource string

const (
	EventSourceLive     EventSource = "live"
	EventSourceUpcoming EventSource = "upcoming"
)

// EventEntry is one externally sourced event in a snapshot. Elapsed is the
// match-clock minute and is nil when the feed did not report one.
type EventEntry struct {
	EventID   string      `json:"event_id"`
	Source    EventSource `json:"source"`
	Elapsed   *int        `json:"elapsed,omitempty"`
	StartTime time.Time   `json:"start_time"`
}

// EventResult is the feed's verdict on a finished event.
type EventResult struct {
	EventID  string `json:"event_id"`
	Finished bool   `json:"finished"`
	Outcome  string `json:"outcome"`
}

// Admission reason codes. All denials are terminal and machine-readable.
const (
	ReasonEventNotFound          = "EVENT_NOT_FOUND"
	ReasonStaleEventData         = "STALE_EVENT_DATA"
	ReasonUnverifiableMatchTime  = "UNVERIFIABLE_MATCH_TIME"
	ReasonMatchTimeExceeded      = "MATCH_TIME_EXCEEDED"
	ReasonEventStatusUncertain   = "EVENT_STATUS_UNCERTAIN"
	ReasonEventVerificationError = "EVENT_VERIFICATION_ERROR"
)

// Decision is the freshness gate's verdict on a wager admission request.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// AdmitRequest is the admission check request body.
type AdmitRequest struct {
	EventID     string `json:"event_id" binding:"required"`
	Market      string `json:"market"`
	ClaimedLive bool   `json:"claimed_live"`
}
