package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sportsbook/internal/blockchain"
	"sportsbook/internal/models"
	"sportsbook/internal/repository"
)

// fakeFeed is a canned ResultSource. Events without an entry error, which is
// how the real feed behaves for an id it has never seen.
type fakeFeed struct {
	results map[string]*models.EventResult
	errs    map[string]error
}

func (ff *fakeFeed) GetEventResult(ctx context.Context, eventID string) (*models.EventResult, error) {
	if err, ok := ff.errs[eventID]; ok {
		return nil, err
	}
	if result, ok := ff.results[eventID]; ok {
		return result, nil
	}
	return nil, fmt.Errorf("unknown event %s", eventID)
}

func finished(eventID, outcome string) *models.EventResult {
	return &models.EventResult{EventID: eventID, Finished: true, Outcome: outcome}
}

func inPlay(eventID string) *models.EventResult {
	return &models.EventResult{EventID: eventID, Finished: false}
}

func newSettlementStack(t *testing.T, feed ResultSource) (*wagerStack, *SettlementService) {
	t.Helper()
	st := newWagerStack(t)
	ss := NewSettlementService(st.repo, st.wagers, feed, st.chain, st.ledger, 100)
	return st, ss
}

func createTestWagerOn(t *testing.T, repo *repository.Repository, wallet, eventID, predicted string, stake, price decimal.Decimal) *models.Wager {
	t.Helper()
	wager := &models.Wager{
		ID:               uuid.New(),
		WalletAddress:    wallet,
		Kind:             models.WagerKindSingle,
		EventID:          eventID,
		Market:           models.MarketMatchWinner,
		PredictedOutcome: predicted,
		Stake:            stake,
		Currency:         models.CurrencySUI,
		Price:            price,
		PotentialPayout:  stake.Mul(price),
		Status:           models.WagerStatusConfirmed,
		CreatedAt:        time.Now(),
	}
	if err := repo.CreateWager(context.Background(), wager); err != nil {
		t.Fatalf("failed to create wager: %v", err)
	}
	return wager
}

func createTestParlay(t *testing.T, repo *repository.Repository, wallet string, stake decimal.Decimal, legs []models.ParlayLeg) *models.Wager {
	t.Helper()
	price := decimal.NewFromInt(1)
	for i := range legs {
		price = price.Mul(legs[i].Price)
	}
	wagerID := uuid.New()
	for i := range legs {
		legs[i].ID = uuid.New()
		legs[i].WagerID = wagerID
	}
	wager := &models.Wager{
		ID:              wagerID,
		WalletAddress:   wallet,
		Kind:            models.WagerKindParlay,
		Stake:           stake,
		Currency:        models.CurrencySUI,
		Price:           price,
		PotentialPayout: stake.Mul(price),
		Status:          models.WagerStatusConfirmed,
		Legs:            legs,
		CreatedAt:       time.Now(),
	}
	if err := repo.CreateWager(context.Background(), wager); err != nil {
		t.Fatalf("failed to create parlay: %v", err)
	}
	return wager
}

func wagerStatus(t *testing.T, repo *repository.Repository, id uuid.UUID) models.WagerStatus {
	t.Helper()
	wager, err := repo.GetWagerByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetWagerByID failed: %v", err)
	}
	return wager.Status
}

func TestRunSettlesFinishedEvents(t *testing.T) {
	feed := &fakeFeed{results: map[string]*models.EventResult{
		"e1": finished("e1", "HOME"),
		"e2": inPlay("e2"),
	}}
	st, ss := newSettlementStack(t, feed)
	ctx := context.Background()

	winner := createTestWagerOn(t, st.repo, "0xwin", "e1", "HOME", decimal.NewFromInt(10), decimal.NewFromInt(2))
	loser := createTestWagerOn(t, st.repo, "0xlose", "e1", "AWAY", decimal.NewFromInt(4), decimal.NewFromInt(3))
	waiting := createTestWagerOn(t, st.repo, "0xwait", "e2", "HOME", decimal.NewFromInt(1), decimal.NewFromInt(2))

	if err := ss.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := wagerStatus(t, st.repo, winner.ID); got != models.WagerStatusWon {
		t.Errorf("expected winner won, got %s", got)
	}
	if got := wagerStatus(t, st.repo, loser.ID); got != models.WagerStatusLost {
		t.Errorf("expected loser lost, got %s", got)
	}
	if got := wagerStatus(t, st.repo, waiting.ID); got != models.WagerStatusConfirmed {
		t.Errorf("expected unfinished event to stay open, got %s", got)
	}

	if got := balanceOf(t, st.ledger, "0xwin", models.CurrencySUI); !got.Equal(mustDecimal(t, "19.9")) {
		t.Errorf("expected winner credited 19.9, got %s", got)
	}
	if got := balanceOf(t, st.ledger, "0xlose", models.CurrencySUI); !got.Equal(decimal.Zero) {
		t.Errorf("expected loser not credited, got %s", got)
	}
}

func TestRunIsReentrant(t *testing.T) {
	feed := &fakeFeed{results: map[string]*models.EventResult{
		"e1": finished("e1", "HOME"),
	}}
	st, ss := newSettlementStack(t, feed)
	ctx := context.Background()

	wager := createTestWagerOn(t, st.repo, "0xwin", "e1", "HOME", decimal.NewFromInt(10), decimal.NewFromInt(2))

	// Two consecutive runs over the same finished event: the second is a
	// clean no-op with no second credit.
	if err := ss.Run(ctx); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if err := ss.Run(ctx); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if got := wagerStatus(t, st.repo, wager.ID); got != models.WagerStatusWon {
		t.Errorf("expected won, got %s", got)
	}
	if got := balanceOf(t, st.ledger, "0xwin", models.CurrencySUI); !got.Equal(mustDecimal(t, "19.9")) {
		t.Errorf("expected exactly one credit of 19.9, got %s", got)
	}
}

func TestRunContinuesPastFeedErrors(t *testing.T) {
	feed := &fakeFeed{
		results: map[string]*models.EventResult{
			"e2": finished("e2", "AWAY"),
		},
		errs: map[string]error{
			"e1": fmt.Errorf("upstream timeout"),
		},
	}
	st, ss := newSettlementStack(t, feed)
	ctx := context.Background()

	blocked := createTestWagerOn(t, st.repo, "0xa", "e1", "HOME", decimal.NewFromInt(5), decimal.NewFromInt(2))
	fine := createTestWagerOn(t, st.repo, "0xb", "e2", "AWAY", decimal.NewFromInt(5), decimal.NewFromInt(2))

	if err := ss.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The failing event leaves its wager open for a later run; the healthy
	// one still settles.
	if got := wagerStatus(t, st.repo, blocked.ID); got != models.WagerStatusConfirmed {
		t.Errorf("expected blocked wager to stay open, got %s", got)
	}
	if got := wagerStatus(t, st.repo, fine.ID); got != models.WagerStatusWon {
		t.Errorf("expected healthy wager settled, got %s", got)
	}
}

func TestRunSettlesParlays(t *testing.T) {
	feed := &fakeFeed{results: map[string]*models.EventResult{
		"e1": finished("e1", "HOME"),
		"e2": finished("e2", "AWAY"),
		"e3": inPlay("e3"),
		"e4": finished("e4", VoidOutcome),
	}}
	st, ss := newSettlementStack(t, feed)
	ctx := context.Background()

	twoLegs := func(a, b models.ParlayLeg) []models.ParlayLeg { return []models.ParlayLeg{a, b} }
	leg := func(eventID, predicted string) models.ParlayLeg {
		return models.ParlayLeg{EventID: eventID, PredictedOutcome: predicted, Price: decimal.NewFromInt(2)}
	}

	sweep := createTestParlay(t, st.repo, "0xsweep", decimal.NewFromInt(10),
		twoLegs(leg("e1", "HOME"), leg("e2", "AWAY")))
	// One finished leg already lost; the open leg on e3 does not matter.
	earlyLoss := createTestParlay(t, st.repo, "0xearly", decimal.NewFromInt(10),
		twoLegs(leg("e1", "AWAY"), leg("e3", "HOME")))
	// All legs finished, one void: the whole parlay refunds.
	voided := createTestParlay(t, st.repo, "0xvoided", decimal.NewFromInt(10),
		twoLegs(leg("e1", "HOME"), leg("e4", "AWAY")))
	// A leg still in play with no losing leg: wait.
	pending := createTestParlay(t, st.repo, "0xpending", decimal.NewFromInt(10),
		twoLegs(leg("e1", "HOME"), leg("e3", "HOME")))

	if err := ss.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := wagerStatus(t, st.repo, sweep.ID); got != models.WagerStatusWon {
		t.Errorf("expected clean sweep won, got %s", got)
	}
	if got := wagerStatus(t, st.repo, earlyLoss.ID); got != models.WagerStatusLost {
		t.Errorf("expected early loss, got %s", got)
	}
	if got := wagerStatus(t, st.repo, voided.ID); got != models.WagerStatusVoid {
		t.Errorf("expected void, got %s", got)
	}
	if got := wagerStatus(t, st.repo, pending.ID); got != models.WagerStatusConfirmed {
		t.Errorf("expected pending parlay to stay open, got %s", got)
	}

	// Void refunded the stake.
	if got := balanceOf(t, st.ledger, "0xvoided", models.CurrencySUI); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected void refund of 10, got %s", got)
	}
	// Sweep paid 4x price: gross 40, profit 30, fee 0.3, net 39.7.
	if got := balanceOf(t, st.ledger, "0xsweep", models.CurrencySUI); !got.Equal(mustDecimal(t, "39.7")) {
		t.Errorf("expected sweep credit 39.7, got %s", got)
	}
}

func createWonOnChainWager(t *testing.T, repo *repository.Repository, wallet string, realized decimal.Decimal) *models.Wager {
	t.Helper()
	ref := "escrow-" + uuid.NewString()
	now := time.Now()
	wager := &models.Wager{
		ID:               uuid.New(),
		OnChainRef:       &ref,
		WalletAddress:    wallet,
		Kind:             models.WagerKindSingle,
		EventID:          "e1",
		PredictedOutcome: "HOME",
		Stake:            decimal.NewFromInt(10),
		Currency:         models.CurrencySUI,
		Price:            decimal.NewFromInt(2),
		PotentialPayout:  decimal.NewFromInt(20),
		Status:           models.WagerStatusWon,
		RealizedPayout:   &realized,
		SettledAt:        &now,
		CreatedAt:        now,
	}
	if err := repo.CreateWager(context.Background(), wager); err != nil {
		t.Fatalf("failed to create won wager: %v", err)
	}
	return wager
}

func TestProcessOnChainPayouts(t *testing.T) {
	feed := &fakeFeed{}
	st, ss := newSettlementStack(t, feed)
	ctx := context.Background()
	wallet := "0xonchain"
	realized := mustDecimal(t, "19.9")

	wager := createWonOnChainWager(t, st.repo, wallet, realized)
	if err := st.ledger.Credit(ctx, wallet, models.CurrencySUI, realized); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	if err := ss.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The ledger credit moved on chain and the wager recorded the digest.
	settled, err := st.repo.GetWagerByID(ctx, wager.ID)
	if err != nil {
		t.Fatalf("GetWagerByID failed: %v", err)
	}
	if settled.Status != models.WagerStatusPaidOut {
		t.Errorf("expected paid_out, got %s", settled.Status)
	}
	if settled.SettlementTxRef == nil || *settled.SettlementTxRef != "payout-digest" {
		t.Errorf("expected settlement digest recorded, got %v", settled.SettlementTxRef)
	}
	if got := balanceOf(t, st.ledger, wallet, models.CurrencySUI); !got.Equal(decimal.Zero) {
		t.Errorf("expected balance 0 after on-chain payout, got %s", got)
	}
}

// slowChain holds the broadcast window open so overlapping runs genuinely
// overlap in time.
type slowChain struct {
	fakeChain
	delay time.Duration
}

func (sc *slowChain) SendPayout(ctx context.Context, recipient string, amount decimal.Decimal, currency models.Currency) (*blockchain.PayoutResult, error) {
	time.Sleep(sc.delay)
	return sc.fakeChain.SendPayout(ctx, recipient, amount, currency)
}

func TestProcessOnChainPayoutsConcurrentRuns(t *testing.T) {
	st, _ := newSettlementStack(t, &fakeFeed{})
	chain := &slowChain{fakeChain: fakeChain{payoutSuccess: true}, delay: 30 * time.Millisecond}
	ss := NewSettlementService(st.repo, st.wagers, &fakeFeed{}, chain, st.ledger, 100)
	ctx := context.Background()
	wallet := "0xconcurrent"
	realized := mustDecimal(t, "19.9")

	wager := createWonOnChainWager(t, st.repo, wallet, realized)
	// Twice the payout on the ledger so a double debit would be observable
	// as a balance of zero instead of one remaining payout.
	if err := st.ledger.Credit(ctx, wallet, models.CurrencySUI, realized.Add(realized)); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	// Scheduled tick overlapping a manual trigger.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ss.Run(ctx); err != nil {
				t.Errorf("Run failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := chain.payoutCalls; got != 1 {
		t.Errorf("expected exactly one payout broadcast, got %d", got)
	}
	if got := balanceOf(t, st.ledger, wallet, models.CurrencySUI); !got.Equal(realized) {
		t.Errorf("expected exactly one debit leaving %s, got %s", realized, got)
	}

	settled, err := st.repo.GetWagerByID(ctx, wager.ID)
	if err != nil {
		t.Fatalf("GetWagerByID failed: %v", err)
	}
	if settled.Status != models.WagerStatusPaidOut {
		t.Errorf("expected paid_out, got %s", settled.Status)
	}
	if settled.SettlementTxRef == nil || *settled.SettlementTxRef != "payout-digest" {
		t.Errorf("expected settlement digest recorded, got %v", settled.SettlementTxRef)
	}
}

func TestProcessOnChainPayoutFailureRestoresBalance(t *testing.T) {
	feed := &fakeFeed{}
	st, ss := newSettlementStack(t, feed)
	st.chain.payoutSuccess = false
	ctx := context.Background()
	wallet := "0xretry"
	realized := mustDecimal(t, "19.9")

	wager := createWonOnChainWager(t, st.repo, wallet, realized)
	if err := st.ledger.Credit(ctx, wallet, models.CurrencySUI, realized); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	if err := ss.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The wager stays won and the balance is back in place for a later run.
	if got := wagerStatus(t, st.repo, wager.ID); got != models.WagerStatusWon {
		t.Errorf("expected wager to stay won, got %s", got)
	}
	if got := balanceOf(t, st.ledger, wallet, models.CurrencySUI); !got.Equal(realized) {
		t.Errorf("expected restored balance %s, got %s", realized, got)
	}
}

func TestProcessOnChainPayoutSkipsSpentBalance(t *testing.T) {
	feed := &fakeFeed{}
	st, ss := newSettlementStack(t, feed)
	ctx := context.Background()

	// The winner already spent the ledger balance; there is nothing to move
	// on chain.
	wager := createWonOnChainWager(t, st.repo, "0xspent", mustDecimal(t, "19.9"))

	if err := ss.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := wagerStatus(t, st.repo, wager.ID); got != models.WagerStatusWon {
		t.Errorf("expected wager to stay won, got %s", got)
	}
	if got := st.chain.payoutCalls; got != 0 {
		t.Errorf("expected no payout broadcast, got %d", got)
	}
}
