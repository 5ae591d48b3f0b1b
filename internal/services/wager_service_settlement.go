package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"sportsbook/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoidOutcome marks an event whose result cannot pay either side; wagers on
// it are refunded.
const VoidOutcome = "VOID"

var oneHundred = decimal.NewFromInt(100)

// Transition atomically moves a wager to a terminal state and applies the
// payout side effects. The status check and the write are one conditional
// UPDATE, so two concurrent settlement attempts on the same wager yield
// exactly one success; the loser returns false with no side effect. If a
// ledger credit fails after the status write, the wager is rolled back to
// pending and the error reported; a wager is never left terminal unpaid.
func (ws *WagerService) Transition(
	ctx context.Context,
	wagerID uuid.UUID,
	target models.WagerStatus,
	payout *decimal.Decimal,
	settlementTxRef *string,
) (bool, error) {
	wager, err := ws.repo.GetWagerByID(ctx, wagerID)
	if err != nil {
		return false, fmt.Errorf("failed to get wager: %w", err)
	}

	var from []models.WagerStatus
	switch target {
	case models.WagerStatusWon, models.WagerStatusLost, models.WagerStatusVoid, models.WagerStatusCashedOut:
		from = []models.WagerStatus{models.WagerStatusPending, models.WagerStatusConfirmed}
	case models.WagerStatusPaidOut:
		// The single legal terminal-to-terminal transition.
		from = []models.WagerStatus{models.WagerStatusWon}
	default:
		return false, fmt.Errorf("illegal transition target: %s", target)
	}

	realized, creditAmount, fee, err := ws.settlementAmounts(wager, target, payout)
	if err != nil {
		return false, err
	}

	ok, err := ws.repo.TransitionStatus(ctx, wagerID, from, target, realized, settlementTxRef)
	if err != nil {
		return false, fmt.Errorf("failed to transition wager: %w", err)
	}
	if !ok {
		// Already settled by a concurrent attempt, or in an incompatible
		// state. No state change, no side effect.
		return false, nil
	}

	// Payout side effects. Only the transition that won the CAS gets here,
	// so each of these runs at most once per settlement.
	switch target {
	case models.WagerStatusWon, models.WagerStatusVoid, models.WagerStatusCashedOut:
		if creditAmount.Sign() > 0 {
			if err := ws.ledger.Credit(ctx, wager.WalletAddress, wager.Currency, creditAmount); err != nil {
				// The status write stuck but nothing was paid: roll back so a
				// later settlement run can retry.
				ws.rollback(ctx, wagerID, target, err)
				return false, fmt.Errorf("payout credit failed: %w", err)
			}
		}
		if target == models.WagerStatusWon && fee.Sign() > 0 {
			if err := ws.revenue.Allocate(ctx, fee, wager.Currency); err != nil {
				// The winner is paid; losing the fee split is recoverable
				// from the audit trail and must not unsettle the wager.
				log.Printf("[WagerService] Warning: fee allocation failed for wager %s: %v", wagerID, err)
			}
		}

	case models.WagerStatusLost:
		// The full stake is the house's realized revenue.
		if err := ws.revenue.Allocate(ctx, wager.Stake, wager.Currency); err != nil {
			ws.rollback(ctx, wagerID, target, err)
			return false, fmt.Errorf("revenue allocation failed: %w", err)
		}
	}

	log.Printf("[WagerService] Wager %s transitioned to %s (credit: %s, fee: %s)",
		wagerID, target, creditAmount, fee)

	return true, nil
}

// settlementAmounts computes the realized payout, the owner credit and the
// platform fee for a transition target.
func (ws *WagerService) settlementAmounts(
	wager *models.Wager,
	target models.WagerStatus,
	payout *decimal.Decimal,
) (realized *decimal.Decimal, creditAmount, fee decimal.Decimal, err error) {
	switch target {
	case models.WagerStatusWon:
		gross := wager.PotentialPayout
		if payout != nil {
			gross = *payout
		}
		// Fee policy: 1% of profit only, never of the returned stake.
		profit := gross.Sub(wager.Stake)
		if profit.Sign() > 0 {
			fee = profit.Mul(ws.feePercent).Div(oneHundred)
		}
		creditAmount = gross.Sub(fee)
		realized = &creditAmount

	case models.WagerStatusLost:
		zero := decimal.Zero
		realized = &zero

	case models.WagerStatusVoid:
		// Stake refund.
		creditAmount = wager.Stake
		realized = &creditAmount

	case models.WagerStatusCashedOut:
		if payout == nil {
			return nil, decimal.Zero, decimal.Zero, errors.New("cash-out requires a payout amount")
		}
		creditAmount = *payout
		realized = &creditAmount

	case models.WagerStatusPaidOut:
		// Ledger movement already happened on the won transition and the
		// on-chain payout path; this only records the chain digest.
		realized = wager.RealizedPayout
	}

	return realized, creditAmount, fee, nil
}

// rollback reverts a wager to pending after a failed payout side effect.
func (ws *WagerService) rollback(ctx context.Context, wagerID uuid.UUID, target models.WagerStatus, cause error) {
	log.Printf("[WagerService] Payout failure on %s -> %s, rolling back to pending: %v", wagerID, target, cause)
	if err := ws.repo.RollbackToPending(ctx, wagerID); err != nil {
		// The wager is stranded terminal-but-unpaid; this needs an operator.
		log.Printf("[WagerService] CRITICAL: rollback failed for wager %s: %v", wagerID, err)
	}
}

// SettleWager settles a single wager directly against a known event outcome
// (the manual/admin path). An already settled wager is reported as such, not
// re-settled.
func (ws *WagerService) SettleWager(ctx context.Context, wagerID uuid.UUID, outcome string) (*models.SettleResult, error) {
	wager, err := ws.repo.GetWagerByID(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}

	if wager.Status.Terminal() {
		return &models.SettleResult{Settled: false, Status: wager.Status, Reason: "already settled"}, nil
	}

	if wager.Kind == models.WagerKindParlay {
		return nil, errors.New("parlay wagers are settled by the settlement job")
	}

	target := OutcomeTarget(wager.PredictedOutcome, outcome)

	ok, err := ws.Transition(ctx, wagerID, target, nil, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race to a concurrent settlement.
		settled, gerr := ws.repo.GetWagerByID(ctx, wagerID)
		if gerr != nil {
			return nil, gerr
		}
		return &models.SettleResult{Settled: false, Status: settled.Status, Reason: "already settled"}, nil
	}

	return &models.SettleResult{Settled: true, Status: target}, nil
}

// OutcomeTarget maps a predicted outcome and an actual result to the
// terminal state a wager should reach.
func OutcomeTarget(predicted, actual string) models.WagerStatus {
	if actual == "" || strings.EqualFold(actual, VoidOutcome) {
		return models.WagerStatusVoid
	}
	if strings.EqualFold(predicted, actual) {
		return models.WagerStatusWon
	}
	return models.WagerStatusLost
}
