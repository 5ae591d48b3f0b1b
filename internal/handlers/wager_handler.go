package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"sportsbook/internal/auth"
	"sportsbook/internal/models"
	"sportsbook/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WagerHandler struct {
	wagerService *services.WagerService
	gate         *services.AdmissionGate
	settlement   *services.SettlementService
}

func NewWagerHandler(
	wagerService *services.WagerService,
	gate *services.AdmissionGate,
	settlement *services.SettlementService,
) *WagerHandler {
	return &WagerHandler{
		wagerService: wagerService,
		gate:         gate,
		settlement:   settlement,
	}
}

// Admit runs the freshness gate for an event without placing anything
// POST /api/wagers/admit
func (h *WagerHandler) Admit(c *gin.Context) {
	var req models.AdmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision := h.gate.Admit(req.EventID, req.ClaimedLive, req.Market)
	c.JSON(http.StatusOK, decision)
}

// PlaceWager places a new single or parlay wager
// POST /api/wagers
func (h *WagerHandler) PlaceWager(c *gin.Context) {
	walletAddress, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.PlaceWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wager, err := h.wagerService.PlaceWager(c.Request.Context(), walletAddress, &req)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientFunds) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient funds"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, wager)
}

// GetWager retrieves a wager by ID
// GET /api/wagers/:id
func (h *WagerHandler) GetWager(c *gin.Context) {
	wagerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wager id"})
		return
	}

	wager, err := h.wagerService.GetWager(c.Request.Context(), wagerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "wager not found"})
		return
	}

	c.JSON(http.StatusOK, wager)
}

// GetMyWagers retrieves the caller's wagers
// GET /api/wagers
func (h *WagerHandler) GetMyWagers(c *gin.Context) {
	walletAddress, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	wagers, err := h.wagerService.GetAccountWagers(c.Request.Context(), walletAddress, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch wagers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wagers": wagers})
}

// CashOut settles an open wager early for an agreed amount
// POST /api/wagers/:id/cashout
func (h *WagerHandler) CashOut(c *gin.Context) {
	walletAddress, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	wagerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wager id"})
		return
	}

	var req models.CashOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.wagerService.CashOut(c.Request.Context(), wagerID, walletAddress, req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SettleWager settles a wager directly against a known outcome (admin path)
// POST /api/admin/wagers/:id/settle
func (h *WagerHandler) SettleWager(c *gin.Context) {
	wagerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wager id"})
		return
	}

	var req models.SettleWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.wagerService.SettleWager(c.Request.Context(), wagerID, req.Outcome)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// TriggerSettlement runs a settlement pass immediately (admin path). Safe to
// overlap with the scheduled job.
// POST /api/admin/settlement/run
func (h *WagerHandler) TriggerSettlement(c *gin.Context) {
	if err := h.settlement.Run(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "settlement run completed"})
}
