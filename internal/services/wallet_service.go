package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sportsbook/internal/models"

	"github.com/shopspring/decimal"
)

// WalletService fronts the ledger for deposit/withdrawal traffic, adding the
// on-chain verification and broadcast around the atomic ledger operations.
type WalletService struct {
	ledger *LedgerService
	chain  ChainClient
}

func NewWalletService(ledger *LedgerService, chain ChainClient) *WalletService {
	return &WalletService{
		ledger: ledger,
		chain:  chain,
	}
}

// Deposit verifies an on-chain transaction digest and applies it to the
// ledger. Replayed digests come back Applied=false, which callers surface as
// a benign confirmation rather than a failure.
func (s *WalletService) Deposit(
	ctx context.Context,
	walletAddress string,
	req *models.DepositRequest,
) (*models.DepositResult, error) {
	if !req.Currency.Valid() {
		return nil, fmt.Errorf("unsupported currency: %s", req.Currency)
	}

	verify, err := s.chain.VerifyTransaction(ctx, req.TxDigest)
	if err != nil {
		return nil, fmt.Errorf("failed to verify deposit transaction: %w", err)
	}
	if !verify.Confirmed {
		return &models.DepositResult{Applied: false, Reason: "transaction not confirmed on chain"}, nil
	}

	return s.ledger.Deposit(ctx, walletAddress, req.Currency, req.Amount, req.TxDigest)
}

// Withdraw debits the ledger and broadcasts the amount on chain. If the
// chain send fails after the debit, the balance is restored; the two
// operations cannot be one atomic unit, so the debit gets compensated.
func (s *WalletService) Withdraw(
	ctx context.Context,
	walletAddress string,
	amount decimal.Decimal,
	currency models.Currency,
) (*models.WithdrawResult, error) {
	if amount.Sign() <= 0 {
		return nil, errors.New("withdrawal amount must be positive")
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("unsupported currency: %s", currency)
	}

	ok, err := s.ledger.Debit(ctx, walletAddress, currency, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit withdrawal: %w", err)
	}
	if !ok {
		return &models.WithdrawResult{Success: false, Reason: "insufficient funds"}, nil
	}

	payout, err := s.chain.SendPayout(ctx, walletAddress, amount, currency)
	if err != nil || !payout.Success {
		if crediterr := s.ledger.Credit(ctx, walletAddress, currency, amount); crediterr != nil {
			log.Printf("[Wallet] CRITICAL: failed to restore balance for %s after chain failure: %v", walletAddress, crediterr)
		}
		log.Printf("[Wallet] Withdrawal broadcast failed for %s: %v", walletAddress, err)
		return &models.WithdrawResult{Success: false, Reason: "on-chain transfer failed"}, nil
	}

	log.Printf("[Wallet] Withdrawal sent: %s %s to %s (digest: %s)", amount, currency, walletAddress, payout.TxDigest)

	return &models.WithdrawResult{Success: true, TxDigest: payout.TxDigest}, nil
}

// GetBalance returns all per-currency balances for an account.
func (s *WalletService) GetBalance(ctx context.Context, walletAddress string) (*models.BalanceResponse, error) {
	return s.ledger.GetBalances(ctx, walletAddress)
}
