package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WagerStatus string

const (
	WagerStatusPending   WagerStatus = "pending"
	WagerStatusConfirmed WagerStatus = "confirmed"
	WagerStatusWon       WagerStatus = "won"
	WagerStatusLost      WagerStatus = "lost"
	WagerStatusVoid      WagerStatus = "void"
	WagerStatusCashedOut WagerStatus = "cashed_out"
	WagerStatusPaidOut   WagerStatus = "paid_out"
)

// Open reports whether the wager can still reach a terminal state.
func (s WagerStatus) Open() bool {
	return s == WagerStatusPending || s == WagerStatusConfirmed
}

// Terminal reports whether the wager has been settled.
func (s WagerStatus) Terminal() bool {
	switch s {
	case WagerStatusWon, WagerStatusLost, WagerStatusVoid, WagerStatusCashedOut, WagerStatusPaidOut:
		return true
	}
	return false
}

type WagerKind string

const (
	WagerKindSingle WagerKind = "SINGLE"
	WagerKindParlay WagerKind = "PARLAY"
)

// Market identifiers. First-half markets are additionally closed once the
// match clock passes the half boundary.
const (
	MarketMatchWinner    = "MATCH_WINNER"
	MarketFirstHalf      = "FIRST_HALF_WINNER"
	MarketFirstHalfGoals = "FIRST_HALF_GOALS"
)

// FirstHalfMarket reports whether the market only accepts wagers before half time.
func FirstHalfMarket(market string) bool {
	return market == MarketFirstHalf || market == MarketFirstHalfGoals
}

// Wager is a single bet or a parlay placed by an account against one or more
// predicted event outcomes. Status may only be mutated through the wager
// service's atomic transition, never written directly.
type Wager struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	OnChainRef       *string          `gorm:"size:255;uniqueIndex" json:"on_chain_ref,omitempty"`
	WalletAddress    string           `gorm:"size:255;not null;index" json:"wallet_address"`
	Kind             WagerKind        `gorm:"size:20;not null;default:SINGLE" json:"kind"`
	EventID          string           `gorm:"size:100;index" json:"event_id"`
	Market           string           `gorm:"size:100" json:"market"`
	PredictedOutcome string           `gorm:"size:255" json:"predicted_outcome"`
	Stake            decimal.Decimal  `gorm:"type:decimal(30,9);not null" json:"stake"`
	Currency         Currency         `gorm:"size:10;not null" json:"currency"`
	Price            decimal.Decimal  `gorm:"type:decimal(12,4);not null" json:"price"`
	PotentialPayout  decimal.Decimal  `gorm:"type:decimal(30,9);not null" json:"potential_payout"`
	Status           WagerStatus      `gorm:"size:20;not null;default:pending;index" json:"status"`
	RealizedPayout   *decimal.Decimal `gorm:"type:decimal(30,9)" json:"realized_payout,omitempty"`
	SettledAt        *time.Time       `json:"settled_at,omitempty"`
	SettlementTxRef  *string          `gorm:"size:255" json:"settlement_tx_ref,omitempty"`
	Legs             []ParlayLeg      `gorm:"foreignKey:WagerID" json:"legs,omitempty"`
	CreatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Wager) TableName() string {
	return "wagers"
}

// ParlayLeg is one selection of a parlay wager. The parlay price is the
// product of its leg prices.
type ParlayLeg struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	WagerID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"wager_id"`
	EventID          string          `gorm:"size:100;not null;index" json:"event_id"`
	Market           string          `gorm:"size:100" json:"market"`
	PredictedOutcome string          `gorm:"size:255;not null" json:"predicted_outcome"`
	Price            decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"price"`
	CreatedAt        time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ParlayLeg) TableName() string {
	return "parlay_legs"
}

// PlaceWagerRequest is the request body for placing a single wager or a
// parlay. Legs are only read when Kind is PARLAY.
type PlaceWagerRequest struct {
	Kind             WagerKind       `json:"kind"`
	EventID          string          `json:"event_id"`
	Market           string          `json:"market"`
	PredictedOutcome string          `json:"predicted_outcome"`
	Stake            decimal.Decimal `json:"stake" binding:"required"`
	Currency         Currency        `json:"currency" binding:"required"`
	Price            decimal.Decimal `json:"price"`
	ClaimedLive      bool            `json:"claimed_live"`
	OnChainRef       *string         `json:"on_chain_ref,omitempty"`
	Legs             []PlaceLegRequest `json:"legs,omitempty"`
}

// PlaceLegRequest is one parlay selection in a PlaceWagerRequest.
type PlaceLegRequest struct {
	EventID          string          `json:"event_id" binding:"required"`
	Market           string          `json:"market"`
	PredictedOutcome string          `json:"predicted_outcome" binding:"required"`
	Price            decimal.Decimal `json:"price" binding:"required"`
}

// SettleWagerRequest is the direct settlement request (admin / manual path).
type SettleWagerRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// SettleResult reports the outcome of a direct settlement call.
type SettleResult struct {
	Settled bool        `json:"settled"`
	Status  WagerStatus `json:"status"`
	Reason  string      `json:"reason,omitempty"`
}

// CashOutRequest carries the agreed cash-out amount for an open wager.
type CashOutRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}
