package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"sportsbook/internal/models"
	"sportsbook/internal/repository"
)

// ResultSource provides final event results. The production implementation
// is the sports feed client; it is treated as untrusted and possibly stale.
type ResultSource interface {
	GetEventResult(ctx context.Context, eventID string) (*models.EventResult, error)
}

// SettlementService discovers finished events and drives open wagers through
// the state machine. It is safe to run concurrently with itself (scheduled
// tick overlapping a manual trigger): exclusivity per wager lives in the
// state machine's compare-and-set, not here.
type SettlementService struct {
	repo      *repository.Repository
	wagers    *WagerService
	feed      ResultSource
	chain     ChainClient
	ledger    Ledger
	batchSize int
}

func NewSettlementService(
	repo *repository.Repository,
	wagers *WagerService,
	feed ResultSource,
	chain ChainClient,
	ledger Ledger,
	batchSize int,
) *SettlementService {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &SettlementService{
		repo:      repo,
		wagers:    wagers,
		feed:      feed,
		chain:     chain,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// Run performs one settlement pass. A failure on one wager is logged and
// skipped; it never aborts the batch, and anything left behind is picked up
// by a later run.
func (ss *SettlementService) Run(ctx context.Context) error {
	open, err := ss.repo.GetOpenWagers(ctx, ss.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch open wagers: %w", err)
	}

	if len(open) == 0 {
		return ss.processOnChainPayouts(ctx)
	}

	log.Printf("[Settlement] Checking %d open wagers", len(open))

	// Memoize feed lookups per run; many wagers reference the same event.
	results := make(map[string]*models.EventResult)
	settled := 0

	for _, wager := range open {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		target, ready, err := ss.outcomeFor(ctx, wager, results)
		if err != nil {
			log.Printf("[Settlement] Error resolving outcome for wager %s: %v", wager.ID, err)
			continue
		}
		if !ready {
			continue
		}

		ok, err := ss.wagers.Transition(ctx, wager.ID, target, nil, nil)
		if err != nil {
			// Payout failure: the state machine already rolled the wager
			// back to pending, so a future run retries it.
			log.Printf("[Settlement] Error settling wager %s as %s: %v", wager.ID, target, err)
			continue
		}
		if !ok {
			// A concurrent run got there first; success-equivalent.
			continue
		}

		settled++
	}

	if settled > 0 {
		log.Printf("[Settlement] Settled %d wagers", settled)
	}

	return ss.processOnChainPayouts(ctx)
}

// outcomeFor determines the terminal state a wager should reach, or
// ready=false when its events have not all finished yet.
func (ss *SettlementService) outcomeFor(
	ctx context.Context,
	wager *models.Wager,
	results map[string]*models.EventResult,
) (models.WagerStatus, bool, error) {
	if wager.Kind == models.WagerKindParlay {
		return ss.parlayOutcome(ctx, wager, results)
	}

	result, err := ss.eventResult(ctx, wager.EventID, results)
	if err != nil {
		return "", false, err
	}
	if !result.Finished {
		return "", false, nil
	}

	return OutcomeTarget(wager.PredictedOutcome, result.Outcome), true, nil
}

// parlayOutcome resolves a parlay: one finished losing leg loses the whole
// wager immediately; otherwise all legs must finish, any void leg voids the
// parlay, and only a clean sweep wins.
func (ss *SettlementService) parlayOutcome(
	ctx context.Context,
	wager *models.Wager,
	results map[string]*models.EventResult,
) (models.WagerStatus, bool, error) {
	allFinished := true
	anyVoid := false

	for _, leg := range wager.Legs {
		result, err := ss.eventResult(ctx, leg.EventID, results)
		if err != nil {
			return "", false, err
		}
		if !result.Finished {
			allFinished = false
			continue
		}

		switch OutcomeTarget(leg.PredictedOutcome, result.Outcome) {
		case models.WagerStatusLost:
			return models.WagerStatusLost, true, nil
		case models.WagerStatusVoid:
			anyVoid = true
		}
	}

	if !allFinished {
		return "", false, nil
	}
	if anyVoid {
		return models.WagerStatusVoid, true, nil
	}
	return models.WagerStatusWon, true, nil
}

func (ss *SettlementService) eventResult(
	ctx context.Context,
	eventID string,
	results map[string]*models.EventResult,
) (*models.EventResult, error) {
	if cached, ok := results[eventID]; ok {
		return cached, nil
	}
	result, err := ss.feed.GetEventResult(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("feed lookup for event %s: %w", eventID, err)
	}
	results[eventID] = result
	return result, nil
}

// processOnChainPayouts completes won -> paid_out for wagers staked on
// chain: the winner's ledger credit is moved onto the chain. The wager is
// claimed through the won -> paid_out compare-and-set before any money
// moves, so of two overlapping runs only one debits and broadcasts; a debit
// or chain failure reverts the claim and leaves the wager won for the next
// run.
func (ss *SettlementService) processOnChainPayouts(ctx context.Context) error {
	if ss.chain == nil {
		return nil
	}

	wagers, err := ss.repo.GetWonOnChainWagers(ctx, ss.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch won on-chain wagers: %w", err)
	}

	for _, wager := range wagers {
		if wager.RealizedPayout == nil || wager.RealizedPayout.Sign() <= 0 {
			continue
		}
		amount := *wager.RealizedPayout

		claimed, err := ss.wagers.Transition(ctx, wager.ID, models.WagerStatusPaidOut, nil, nil)
		if err != nil {
			log.Printf("[Settlement] Error claiming wager %s for payout: %v", wager.ID, err)
			continue
		}
		if !claimed {
			// A concurrent run holds the claim; success-equivalent.
			continue
		}

		// Move the payout out of the ledger; if the owner already spent it
		// there is nothing to put on chain.
		ok, err := ss.ledger.Debit(ctx, wager.WalletAddress, wager.Currency, amount)
		if err != nil {
			log.Printf("[Settlement] Error debiting payout for wager %s: %v", wager.ID, err)
			ss.revertPayoutClaim(ctx, wager.ID)
			continue
		}
		if !ok {
			log.Printf("[Settlement] Skipping on-chain payout for wager %s: ledger balance already spent", wager.ID)
			ss.revertPayoutClaim(ctx, wager.ID)
			continue
		}

		payout, err := ss.chain.SendPayout(ctx, wager.WalletAddress, amount, wager.Currency)
		if err != nil || !payout.Success {
			// Compensate: the money goes back to the ledger and the claim is
			// released, eligible for retry.
			if crediterr := ss.ledger.Credit(ctx, wager.WalletAddress, wager.Currency, amount); crediterr != nil {
				log.Printf("[Settlement] CRITICAL: failed to restore balance for wager %s: %v", wager.ID, crediterr)
			}
			log.Printf("[Settlement] On-chain payout failed for wager %s: %v", wager.ID, err)
			ss.revertPayoutClaim(ctx, wager.ID)
			continue
		}

		if err := ss.repo.RecordSettlementTxRef(ctx, wager.ID, payout.TxDigest); err != nil {
			log.Printf("[Settlement] Error recording payout digest for wager %s: %v", wager.ID, err)
		}
	}

	return nil
}

// revertPayoutClaim returns a claimed wager to won after the payout could
// not be completed.
func (ss *SettlementService) revertPayoutClaim(ctx context.Context, wagerID uuid.UUID) {
	if err := ss.repo.RevertPayoutClaim(ctx, wagerID); err != nil {
		// The wager is stranded paid_out without a broadcast; this needs an
		// operator.
		log.Printf("[Settlement] CRITICAL: failed to revert payout claim for wager %s: %v", wagerID, err)
	}
}
