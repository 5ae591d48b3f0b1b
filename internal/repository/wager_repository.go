package repository

import (
	"context"
	"time"

	"sportsbook/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWager creates a new wager together with its parlay legs, if any.
func (r *Repository) CreateWager(ctx context.Context, wager *models.Wager) error {
	return r.db.WithContext(ctx).Create(wager).Error
}

// GetWagerByID retrieves a wager by ID with its legs
func (r *Repository) GetWagerByID(ctx context.Context, wagerID uuid.UUID) (*models.Wager, error) {
	var wager models.Wager
	err := r.db.WithContext(ctx).Preload("Legs").Where("id = ?", wagerID).First(&wager).Error
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

// GetWagerByChainRef retrieves a wager by its on-chain object reference
func (r *Repository) GetWagerByChainRef(ctx context.Context, ref string) (*models.Wager, error) {
	var wager models.Wager
	err := r.db.WithContext(ctx).Preload("Legs").Where("on_chain_ref = ?", ref).First(&wager).Error
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

// GetAccountWagers retrieves all wagers for an account, newest first
func (r *Repository) GetAccountWagers(
	ctx context.Context,
	walletAddress string,
	limit int,
	offset int,
) ([]*models.Wager, error) {
	var wagers []*models.Wager
	err := r.db.WithContext(ctx).
		Preload("Legs").
		Where("wallet_address = ?", walletAddress).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&wagers).Error

	if err != nil {
		return nil, err
	}

	return wagers, nil
}

// GetOpenWagers retrieves wagers still awaiting settlement
func (r *Repository) GetOpenWagers(ctx context.Context, limit int) ([]*models.Wager, error) {
	var wagers []*models.Wager
	err := r.db.WithContext(ctx).
		Preload("Legs").
		Where("status IN ?", []models.WagerStatus{
			models.WagerStatusPending,
			models.WagerStatusConfirmed,
		}).
		Order("created_at ASC").
		Limit(limit).
		Find(&wagers).Error

	if err != nil {
		return nil, err
	}

	return wagers, nil
}

// GetWonOnChainWagers retrieves won wagers that were staked on-chain and
// still await their on-chain payout.
func (r *Repository) GetWonOnChainWagers(ctx context.Context, limit int) ([]*models.Wager, error) {
	var wagers []*models.Wager
	err := r.db.WithContext(ctx).
		Where("status = ? AND on_chain_ref IS NOT NULL", models.WagerStatusWon).
		Order("settled_at ASC").
		Limit(limit).
		Find(&wagers).Error

	if err != nil {
		return nil, err
	}

	return wagers, nil
}

// TransitionStatus atomically moves a wager from one of the given source
// states to the target state. The status check and the write are a single
// conditional UPDATE; of two concurrent attempts exactly one observes a row.
// Returns false with no state change when the wager was not in a legal
// source state.
func (r *Repository) TransitionStatus(
	ctx context.Context,
	wagerID uuid.UUID,
	from []models.WagerStatus,
	to models.WagerStatus,
	realizedPayout *decimal.Decimal,
	settlementTxRef *string,
) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if to.Terminal() {
		now := time.Now()
		updates["settled_at"] = &now
		if realizedPayout != nil {
			updates["realized_payout"] = realizedPayout
		}
		if settlementTxRef != nil {
			updates["settlement_tx_ref"] = settlementTxRef
		}
	}

	result := r.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("id = ? AND status IN ?", wagerID, from).
		Updates(updates)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// RecordSettlementTxRef stores the on-chain digest of a completed payout.
func (r *Repository) RecordSettlementTxRef(ctx context.Context, wagerID uuid.UUID, txRef string) error {
	return r.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("id = ?", wagerID).
		Updates(map[string]interface{}{
			"settlement_tx_ref": txRef,
			"updated_at":        time.Now(),
		}).Error
}

// RevertPayoutClaim returns a wager claimed paid_out for an on-chain payout
// back to won. Used only by the settlement service's compensating path.
func (r *Repository) RevertPayoutClaim(ctx context.Context, wagerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("id = ? AND status = ?", wagerID, models.WagerStatusPaidOut).
		Updates(map[string]interface{}{
			"status":     models.WagerStatusWon,
			"updated_at": time.Now(),
		}).Error
}

// RollbackToPending reverts a wager to pending after a failed payout side
// effect, clearing the settlement audit columns. Used only by the wager
// service's compensating path.
func (r *Repository) RollbackToPending(ctx context.Context, wagerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("id = ?", wagerID).
		Updates(map[string]interface{}{
			"status":            models.WagerStatusPending,
			"realized_payout":   nil,
			"settled_at":        nil,
			"settlement_tx_ref": nil,
			"updated_at":        time.Now(),
		}).Error
}
