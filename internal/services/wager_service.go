package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sportsbook/internal/blockchain"
	"sportsbook/internal/models"
	"sportsbook/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the balance ledger surface the wager service depends on. The
// production implementation is LedgerService.
type Ledger interface {
	Credit(ctx context.Context, walletAddress string, currency models.Currency, amount decimal.Decimal) error
	Debit(ctx context.Context, walletAddress string, currency models.Currency, amount decimal.Decimal) (bool, error)
	Apply(ctx context.Context, entries []LedgerEntry) (bool, error)
}

// ChainClient is the narrow payment-rail surface. The production
// implementation is blockchain.SuiClient.
type ChainClient interface {
	VerifyTransaction(ctx context.Context, txDigest string) (*blockchain.VerifyResult, error)
	SendPayout(ctx context.Context, recipient string, amount decimal.Decimal, currency models.Currency) (*blockchain.PayoutResult, error)
}

type WagerService struct {
	repo       *repository.Repository
	ledger     Ledger
	revenue    *RevenueService
	gate       *AdmissionGate
	chain      ChainClient
	feePercent decimal.Decimal
}

func NewWagerService(
	repo *repository.Repository,
	ledger Ledger,
	revenue *RevenueService,
	gate *AdmissionGate,
	chain ChainClient,
	feePercent decimal.Decimal,
) *WagerService {
	return &WagerService{
		repo:       repo,
		ledger:     ledger,
		revenue:    revenue,
		gate:       gate,
		chain:      chain,
		feePercent: feePercent,
	}
}

// PlaceWager admits, funds and records a new wager. Ledger-funded wagers
// debit the stake and start pending; on-chain wagers verify the escrow
// transaction first and start confirmed.
func (ws *WagerService) PlaceWager(
	ctx context.Context,
	walletAddress string,
	req *models.PlaceWagerRequest,
) (*models.Wager, error) {
	if req.Stake.Sign() <= 0 {
		return nil, errors.New("stake must be positive")
	}
	if !req.Currency.Valid() {
		return nil, fmt.Errorf("unsupported currency: %s", req.Currency)
	}

	kind := req.Kind
	if kind == "" {
		kind = models.WagerKindSingle
	}

	var price decimal.Decimal
	var legs []models.ParlayLeg

	switch kind {
	case models.WagerKindSingle:
		if req.EventID == "" || req.PredictedOutcome == "" {
			return nil, errors.New("event id and predicted outcome are required")
		}
		if req.Price.LessThanOrEqual(decimal.NewFromInt(1)) {
			return nil, errors.New("price must be greater than 1")
		}
		if decision := ws.gate.Admit(req.EventID, req.ClaimedLive, req.Market); !decision.Allowed {
			return nil, fmt.Errorf("wager not admitted: %s", decision.Reason)
		}
		price = req.Price

	case models.WagerKindParlay:
		if len(req.Legs) < 2 {
			return nil, errors.New("a parlay requires at least two legs")
		}
		// Every leg must pass admission on its own event.
		price = decimal.NewFromInt(1)
		for _, leg := range req.Legs {
			if leg.Price.LessThanOrEqual(decimal.NewFromInt(1)) {
				return nil, errors.New("leg price must be greater than 1")
			}
			if decision := ws.gate.Admit(leg.EventID, req.ClaimedLive, leg.Market); !decision.Allowed {
				return nil, fmt.Errorf("leg %s not admitted: %s", leg.EventID, decision.Reason)
			}
			price = price.Mul(leg.Price)
		}

	default:
		return nil, fmt.Errorf("unknown wager kind: %s", kind)
	}

	wagerID := uuid.New()
	status := models.WagerStatusPending

	// Fund the stake.
	if req.OnChainRef != nil {
		// Stake is escrowed on chain; verify the digest before accepting.
		verify, err := ws.chain.VerifyTransaction(ctx, *req.OnChainRef)
		if err != nil {
			return nil, fmt.Errorf("failed to verify on-chain stake: %w", err)
		}
		if !verify.Confirmed {
			return nil, errors.New("on-chain stake transaction is not confirmed")
		}
		status = models.WagerStatusConfirmed
	} else {
		ok, err := ws.ledger.Debit(ctx, walletAddress, req.Currency, req.Stake)
		if err != nil {
			return nil, fmt.Errorf("failed to debit stake: %w", err)
		}
		if !ok {
			return nil, ErrInsufficientFunds
		}
	}

	if kind == models.WagerKindParlay {
		legs = make([]models.ParlayLeg, 0, len(req.Legs))
		for _, leg := range req.Legs {
			legs = append(legs, models.ParlayLeg{
				ID:               uuid.New(),
				WagerID:          wagerID,
				EventID:          leg.EventID,
				Market:           leg.Market,
				PredictedOutcome: leg.PredictedOutcome,
				Price:            leg.Price,
				CreatedAt:        time.Now(),
			})
		}
	}

	wager := &models.Wager{
		ID:               wagerID,
		OnChainRef:       req.OnChainRef,
		WalletAddress:    walletAddress,
		Kind:             kind,
		EventID:          req.EventID,
		Market:           req.Market,
		PredictedOutcome: req.PredictedOutcome,
		Stake:            req.Stake,
		Currency:         req.Currency,
		Price:            price,
		PotentialPayout:  req.Stake.Mul(price),
		Status:           status,
		Legs:             legs,
		CreatedAt:        time.Now(),
	}

	if err := ws.repo.CreateWager(ctx, wager); err != nil {
		// The stake was already taken; give it back before reporting failure.
		if req.OnChainRef == nil {
			if crediterr := ws.ledger.Credit(ctx, walletAddress, req.Currency, req.Stake); crediterr != nil {
				log.Printf("[WagerService] CRITICAL: failed to refund stake for %s after create failure: %v", walletAddress, crediterr)
			}
		}
		return nil, fmt.Errorf("failed to create wager: %w", err)
	}

	log.Printf("[WagerService] Wager %s placed by %s: %s %s at %s (status: %s)",
		wagerID, walletAddress, req.Stake, req.Currency, price, status)

	return wager, nil
}

// GetWager retrieves a wager by ID
func (ws *WagerService) GetWager(ctx context.Context, wagerID uuid.UUID) (*models.Wager, error) {
	return ws.repo.GetWagerByID(ctx, wagerID)
}

// GetAccountWagers retrieves an account's wagers, newest first
func (ws *WagerService) GetAccountWagers(ctx context.Context, walletAddress string, limit, offset int) ([]*models.Wager, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return ws.repo.GetAccountWagers(ctx, walletAddress, limit, offset)
}
