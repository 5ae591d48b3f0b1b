package services

import (
	"context"
	"errors"
	"fmt"

	"sportsbook/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashOut settles an open wager early for an agreed amount. The amount is
// credited to the owner; the difference to the stake stays with the house
// implicitly (the stake was already taken at placement).
func (ws *WagerService) CashOut(
	ctx context.Context,
	wagerID uuid.UUID,
	callerAddress string,
	amount decimal.Decimal,
) (*models.SettleResult, error) {
	wager, err := ws.repo.GetWagerByID(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}

	if wager.WalletAddress != callerAddress {
		return nil, errors.New("only the wager owner can cash out")
	}
	if amount.Sign() <= 0 {
		return nil, errors.New("cash-out amount must be positive")
	}
	if amount.GreaterThan(wager.PotentialPayout) {
		return nil, errors.New("cash-out amount exceeds potential payout")
	}

	ok, err := ws.Transition(ctx, wagerID, models.WagerStatusCashedOut, &amount, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, gerr := ws.repo.GetWagerByID(ctx, wagerID)
		if gerr != nil {
			return nil, gerr
		}
		return &models.SettleResult{Settled: false, Status: current.Status, Reason: "already settled"}, nil
	}

	return &models.SettleResult{Settled: true, Status: models.WagerStatusCashedOut}, nil
}
