package services

import (
	"context"
	"fmt"
	"log"

	"sportsbook/internal/models"

	"github.com/shopspring/decimal"
)

// Revenue split proportions: holders 30%, treasury 40%, profit 30%.
var (
	holdersShare  = decimal.NewFromFloat(0.30)
	treasuryShare = decimal.NewFromFloat(0.40)
)

// RevenueService allocates realized platform revenue into the three fixed
// sub-accounts. It is only ever invoked by the wager state machine on a
// successful, non-duplicate transition, which is what makes its at-most-once
// contract hold.
type RevenueService struct {
	ledger *LedgerService
}

func NewRevenueService(ledger *LedgerService) *RevenueService {
	return &RevenueService{ledger: ledger}
}

// Allocate splits amount into the holders/treasury/profit sub-accounts.
// Profit takes the remainder so the three parts always sum to the input
// exactly, whatever the rounding of the percentage legs.
func (rs *RevenueService) Allocate(ctx context.Context, amount decimal.Decimal, currency models.Currency) error {
	if amount.Sign() <= 0 {
		return nil
	}

	holders := amount.Mul(holdersShare)
	treasury := amount.Mul(treasuryShare)
	profit := amount.Sub(holders).Sub(treasury)

	entries := []LedgerEntry{
		{WalletAddress: models.RevenueHoldersAccount, Currency: currency, Amount: holders},
		{WalletAddress: models.RevenueTreasuryAccount, Currency: currency, Amount: treasury},
		{WalletAddress: models.RevenueProfitAccount, Currency: currency, Amount: profit},
	}

	ok, err := rs.ledger.Apply(ctx, entries)
	if err != nil {
		return fmt.Errorf("failed to allocate revenue: %w", err)
	}
	if !ok {
		// Credits are unconditional, so Apply can only refuse on a debit.
		return fmt.Errorf("revenue allocation rejected")
	}

	log.Printf("[Revenue] Allocated %s %s (holders: %s, treasury: %s, profit: %s)",
		amount, currency, holders, treasury, profit)

	return nil
}
