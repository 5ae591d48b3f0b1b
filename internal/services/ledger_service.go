package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sportsbook/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientFunds is returned inside ledger transactions to abort a
// multi-entry application. Callers see it as ok=false, never as a panic.
var ErrInsufficientFunds = errors.New("insufficient funds")

// LedgerEntry is one leg of an atomic multi-entry ledger application.
type LedgerEntry struct {
	WalletAddress string
	Currency      models.Currency
	Amount        decimal.Decimal
	Debit         bool
}

// LedgerService is the only component allowed to mutate account balances.
// Every mutation is a conditional single-statement UPDATE, so two concurrent
// operations on the same account serialize at the database row and the
// balance can never go negative.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Credit adds amount to an account balance, creating the account on first
// credit if it does not yet exist.
func (ls *LedgerService) Credit(ctx context.Context, walletAddress string, currency models.Currency, amount decimal.Decimal) error {
	return ls.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return creditTx(tx, walletAddress, currency, amount)
	})
}

// Debit subtracts amount from an account balance. Returns false with no
// effect when the balance is insufficient; the check and the decrement are
// one indivisible statement.
func (ls *LedgerService) Debit(ctx context.Context, walletAddress string, currency models.Currency, amount decimal.Decimal) (bool, error) {
	var ok bool
	err := ls.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ok, err = debitTx(tx, walletAddress, currency, amount)
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Apply applies a set of debits and credits as one atomic unit: either every
// entry applies or none do. Used for stake+fee style compound operations.
func (ls *LedgerService) Apply(ctx context.Context, entries []LedgerEntry) (bool, error) {
	err := ls.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			if entry.Debit {
				ok, err := debitTx(tx, entry.WalletAddress, entry.Currency, entry.Amount)
				if err != nil {
					return err
				}
				if !ok {
					return ErrInsufficientFunds
				}
			} else {
				if err := creditTx(tx, entry.WalletAddress, entry.Currency, entry.Amount); err != nil {
					return err
				}
			}
		}
		return nil
	})

	if errors.Is(err, ErrInsufficientFunds) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Deposit credits an account for an on-chain deposit, recording the
// transaction digest. A digest that was already applied is rejected as a
// duplicate with no balance change.
func (ls *LedgerService) Deposit(
	ctx context.Context,
	walletAddress string,
	currency models.Currency,
	amount decimal.Decimal,
	txDigest string,
) (*models.DepositResult, error) {
	if amount.Sign() <= 0 {
		return nil, errors.New("deposit amount must be positive")
	}
	if txDigest == "" {
		return nil, errors.New("transaction digest is required")
	}

	var result models.DepositResult

	err := ls.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Dedup check inside the transaction; the unique index on tx_digest
		// is the backstop for two concurrent deposits of the same digest.
		var existing models.DepositRecord
		err := tx.Where("tx_digest = ?", txDigest).First(&existing).Error
		if err == nil {
			result = models.DepositResult{Applied: false, Reason: "duplicate transaction"}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		record := &models.DepositRecord{
			ID:            uuid.New(),
			WalletAddress: walletAddress,
			Amount:        amount,
			Currency:      currency,
			TxDigest:      txDigest,
			CreatedAt:     time.Now(),
		}
		if err := tx.Create(record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result = models.DepositResult{Applied: false, Reason: "duplicate transaction"}
				return nil
			}
			return fmt.Errorf("failed to record deposit: %w", err)
		}

		if err := creditTx(tx, walletAddress, currency, amount); err != nil {
			return err
		}

		result = models.DepositResult{Applied: true}
		return nil
	})

	if err != nil {
		return nil, err
	}

	if result.Applied {
		log.Printf("[Ledger] Deposit applied: %s %s to %s (digest: %s)", amount, currency, walletAddress, txDigest)
	} else {
		log.Printf("[Ledger] Duplicate deposit rejected: %s (digest: %s)", walletAddress, txDigest)
	}

	return &result, nil
}

// GetBalances returns all per-currency balances for an account. An account
// that has never been credited reports zero balances.
func (ls *LedgerService) GetBalances(ctx context.Context, walletAddress string) (*models.BalanceResponse, error) {
	var account models.Account
	err := ls.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.BalanceResponse{
			WalletAddress: walletAddress,
			Balances: map[models.Currency]decimal.Decimal{
				models.CurrencySUI:  decimal.Zero,
				models.CurrencySBET: decimal.Zero,
			},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &models.BalanceResponse{
		WalletAddress: walletAddress,
		Balances: map[models.Currency]decimal.Decimal{
			models.CurrencySUI:  account.SuiBalance,
			models.CurrencySBET: account.SbetBalance,
		},
	}, nil
}

// creditTx applies an unconditional credit inside an open transaction.
func creditTx(tx *gorm.DB, walletAddress string, currency models.Currency, amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return errors.New("credit amount must not be negative")
	}
	col, err := balanceColumn(currency)
	if err != nil {
		return err
	}

	// Lazily create the receiving account, then increment in place.
	account := models.Account{WalletAddress: walletAddress}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&account).Error; err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}

	return tx.Model(&models.Account{}).
		Where("wallet_address = ?", walletAddress).
		UpdateColumn(col, gorm.Expr(col+" + ?", amount)).Error
}

// debitTx applies a conditional debit inside an open transaction. The
// balance check is embedded in the WHERE clause of the same statement that
// performs the decrement.
func debitTx(tx *gorm.DB, walletAddress string, currency models.Currency, amount decimal.Decimal) (bool, error) {
	if amount.Sign() < 0 {
		return false, errors.New("debit amount must not be negative")
	}
	col, err := balanceColumn(currency)
	if err != nil {
		return false, err
	}

	result := tx.Model(&models.Account{}).
		Where("wallet_address = ? AND "+col+" >= ?", walletAddress, amount).
		UpdateColumn(col, gorm.Expr(col+" - ?", amount))

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func balanceColumn(currency models.Currency) (string, error) {
	switch currency {
	case models.CurrencySUI:
		return "sui_balance", nil
	case models.CurrencySBET:
		return "sbet_balance", nil
	default:
		return "", fmt.Errorf("unsupported currency: %s", currency)
	}
}
