package jobs

import (
	"context"
	"log"
	"time"

	"sportsbook/internal/services"
)

// SettlementJob periodically runs a settlement pass over open wagers.
// Overlap with a manually triggered run is safe; the state machine's
// compare-and-set makes repeated attempts no-ops.
type SettlementJob struct {
	settlement *services.SettlementService
	interval   time.Duration
	stopChan   chan struct{}
}

// NewSettlementJob creates a new settlement job
func NewSettlementJob(settlement *services.SettlementService, interval time.Duration) *SettlementJob {
	return &SettlementJob{
		settlement: settlement,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the settlement loop
func (sj *SettlementJob) Start() {
	log.Printf("[SettlementJob] Starting settlement job (interval: %v)", sj.interval)

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := sj.settlement.Run(context.Background()); err != nil {
				log.Printf("[SettlementJob] Settlement run failed: %v", err)
			}
		case <-sj.stopChan:
			log.Println("[SettlementJob] Stopping settlement job")
			return
		}
	}
}

// Stop stops the settlement loop
func (sj *SettlementJob) Stop() {
	close(sj.stopChan)
}
