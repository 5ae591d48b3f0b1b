package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencySUI  Currency = "SUI"
	CurrencySBET Currency = "SBET"
)

// Valid reports whether the currency is one of the supported ledger currencies.
func (c Currency) Valid() bool {
	return c == CurrencySUI || c == CurrencySBET
}

// Revenue sub-account addresses. These live in the accounts table like any
// customer account but are only ever credited by the revenue splitter.
const (
	RevenueHoldersAccount  = "revenue:holders"
	RevenueTreasuryAccount = "revenue:treasury"
	RevenueProfitAccount   = "revenue:profit"
)

// Account holds one balance per supported currency, keyed by wallet address.
// Accounts are created lazily on first credit and never deleted.
type Account struct {
	WalletAddress string          `gorm:"primaryKey;size:255" json:"wallet_address"`
	SuiBalance    decimal.Decimal `gorm:"type:decimal(30,9);not null;default:0" json:"sui_balance"`
	SbetBalance   decimal.Decimal `gorm:"type:decimal(30,9);not null;default:0" json:"sbet_balance"`
	CreatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// DepositRecord is the audit row for an applied on-chain deposit. The unique
// index on TxDigest is the sole defense against replaying the same on-chain
// transaction into the ledger twice.
type DepositRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	WalletAddress string          `gorm:"size:255;not null;index" json:"wallet_address"`
	Amount        decimal.Decimal `gorm:"type:decimal(30,9);not null" json:"amount"`
	Currency      Currency        `gorm:"size:10;not null" json:"currency"`
	TxDigest      string          `gorm:"size:255;not null;uniqueIndex" json:"tx_digest"`
	CreatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (DepositRecord) TableName() string {
	return "deposit_records"
}

// BalanceResponse reports all per-currency balances for an account.
type BalanceResponse struct {
	WalletAddress string                     `json:"wallet_address"`
	Balances      map[Currency]decimal.Decimal `json:"balances"`
}

// DepositResult is returned by the ledger deposit operation. A replayed
// transaction digest yields Applied=false with no balance change.
type DepositResult struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// DepositRequest is the wallet deposit request body.
type DepositRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency Currency        `json:"currency" binding:"required"`
	TxDigest string          `json:"tx_digest" binding:"required"`
}

// WithdrawRequest is the wallet withdrawal request body.
type WithdrawRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency Currency        `json:"currency" binding:"required"`
}

// WithdrawResult reports the outcome of a withdrawal.
type WithdrawResult struct {
	Success  bool   `json:"success"`
	TxDigest string `json:"tx_digest,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
