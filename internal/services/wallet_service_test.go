package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"sportsbook/internal/models"
)

func TestDepositRequiresChainConfirmation(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	chain := &fakeChain{verifyConfirmed: false}
	ws := NewWalletService(ledger, chain)
	ctx := context.Background()

	req := &models.DepositRequest{
		Amount:   decimal.NewFromInt(10),
		Currency: models.CurrencySUI,
		TxDigest: "digest-x",
	}

	result, err := ws.Deposit(ctx, "0xdep", req)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if result.Applied {
		t.Fatal("expected unconfirmed deposit to be held back")
	}
	if got := balanceOf(t, ledger, "0xdep", models.CurrencySUI); !got.Equal(decimal.Zero) {
		t.Errorf("expected balance 0, got %s", got)
	}

	// Once confirmed, the same digest applies exactly once.
	chain.verifyConfirmed = true
	result, err = ws.Deposit(ctx, "0xdep", req)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected confirmed deposit to apply")
	}

	result, err = ws.Deposit(ctx, "0xdep", req)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if result.Applied {
		t.Fatal("expected replayed deposit to be rejected")
	}
	if got := balanceOf(t, ledger, "0xdep", models.CurrencySUI); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected balance 10, got %s", got)
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	chain := &fakeChain{payoutSuccess: true}
	ws := NewWalletService(ledger, chain)
	ctx := context.Background()

	result, err := ws.Withdraw(ctx, "0xpoor", decimal.NewFromInt(5), models.CurrencySUI)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if result.Success {
		t.Fatal("expected unfunded withdrawal to be refused")
	}
	if result.Reason != "insufficient funds" {
		t.Errorf("expected insufficient funds reason, got %q", result.Reason)
	}
	if got := chain.payoutCalls; got != 0 {
		t.Errorf("expected no broadcast, got %d", got)
	}
}

func TestWithdrawMovesBalanceOnChain(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	chain := &fakeChain{payoutSuccess: true}
	ws := NewWalletService(ledger, chain)
	ctx := context.Background()
	wallet := "0xrich"

	if err := ledger.Credit(ctx, wallet, models.CurrencySUI, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	result, err := ws.Withdraw(ctx, wallet, decimal.NewFromInt(4), models.CurrencySUI)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected withdrawal to succeed, got %+v", result)
	}
	if result.TxDigest != "payout-digest" {
		t.Errorf("expected broadcast digest, got %q", result.TxDigest)
	}
	if got := balanceOf(t, ledger, wallet, models.CurrencySUI); !got.Equal(decimal.NewFromInt(6)) {
		t.Errorf("expected balance 6, got %s", got)
	}
}

func TestWithdrawRestoresBalanceOnChainFailure(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	chain := &fakeChain{payoutSuccess: false}
	ws := NewWalletService(ledger, chain)
	ctx := context.Background()
	wallet := "0xunlucky"

	if err := ledger.Credit(ctx, wallet, models.CurrencySUI, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	result, err := ws.Withdraw(ctx, wallet, decimal.NewFromInt(10), models.CurrencySUI)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed broadcast to fail the withdrawal")
	}
	// The debit was compensated.
	if got := balanceOf(t, ledger, wallet, models.CurrencySUI); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected balance restored to 10, got %s", got)
	}
}
