package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"sportsbook/internal/models"
)

func revenueBalances(t *testing.T, ls *LedgerService, currency models.Currency) (holders, treasury, profit decimal.Decimal) {
	t.Helper()
	holders = balanceOf(t, ls, models.RevenueHoldersAccount, currency)
	treasury = balanceOf(t, ls, models.RevenueTreasuryAccount, currency)
	profit = balanceOf(t, ls, models.RevenueProfitAccount, currency)
	return holders, treasury, profit
}

func TestAllocateSplitsThirtyFortyThirty(t *testing.T) {
	db := setupTestDB(t)
	ls := NewLedgerService(db)
	rs := NewRevenueService(ls)

	if err := rs.Allocate(context.Background(), mustDecimal(t, "0.1"), models.CurrencySUI); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	holders, treasury, profit := revenueBalances(t, ls, models.CurrencySUI)
	if !holders.Equal(mustDecimal(t, "0.03")) {
		t.Errorf("expected holders 0.03, got %s", holders)
	}
	if !treasury.Equal(mustDecimal(t, "0.04")) {
		t.Errorf("expected treasury 0.04, got %s", treasury)
	}
	if !profit.Equal(mustDecimal(t, "0.03")) {
		t.Errorf("expected profit 0.03, got %s", profit)
	}
}

func TestAllocateSharesAlwaysSumToInput(t *testing.T) {
	db := setupTestDB(t)
	ls := NewLedgerService(db)
	rs := NewRevenueService(ls)
	ctx := context.Background()

	amounts := []string{"1", "0.000000001", "123.456789123", "7"}
	total := decimal.Zero

	for _, s := range amounts {
		amount := mustDecimal(t, s)
		if err := rs.Allocate(ctx, amount, models.CurrencySBET); err != nil {
			t.Fatalf("Allocate(%s) failed: %v", s, err)
		}
		total = total.Add(amount)
	}

	holders, treasury, profit := revenueBalances(t, ls, models.CurrencySBET)
	if sum := holders.Add(treasury).Add(profit); !sum.Equal(total) {
		t.Errorf("expected shares to sum to %s, got %s", total, sum)
	}
}

func TestAllocateIgnoresNonPositiveAmounts(t *testing.T) {
	db := setupTestDB(t)
	ls := NewLedgerService(db)
	rs := NewRevenueService(ls)
	ctx := context.Background()

	if err := rs.Allocate(ctx, decimal.Zero, models.CurrencySUI); err != nil {
		t.Fatalf("Allocate(0) failed: %v", err)
	}
	if err := rs.Allocate(ctx, decimal.NewFromInt(-5), models.CurrencySUI); err != nil {
		t.Fatalf("Allocate(-5) failed: %v", err)
	}

	holders, treasury, profit := revenueBalances(t, ls, models.CurrencySUI)
	if !holders.Equal(decimal.Zero) || !treasury.Equal(decimal.Zero) || !profit.Equal(decimal.Zero) {
		t.Errorf("expected no allocation, got %s/%s/%s", holders, treasury, profit)
	}
}

func TestAllocatePerCurrency(t *testing.T) {
	db := setupTestDB(t)
	ls := NewLedgerService(db)
	rs := NewRevenueService(ls)
	ctx := context.Background()

	if err := rs.Allocate(ctx, decimal.NewFromInt(10), models.CurrencySUI); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if err := rs.Allocate(ctx, decimal.NewFromInt(20), models.CurrencySBET); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	// Each currency is tracked independently on the same sub-accounts.
	if got := balanceOf(t, ls, models.RevenueTreasuryAccount, models.CurrencySUI); !got.Equal(decimal.NewFromInt(4)) {
		t.Errorf("expected SUI treasury 4, got %s", got)
	}
	if got := balanceOf(t, ls, models.RevenueTreasuryAccount, models.CurrencySBET); !got.Equal(decimal.NewFromInt(8)) {
		t.Errorf("expected SBET treasury 8, got %s", got)
	}
}
