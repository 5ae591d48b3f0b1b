package handlers

import (
	"net/http"

	"sportsbook/internal/auth"
	"sportsbook/internal/blockchain"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	suiClient *blockchain.SuiClient
}

func NewAuthHandler(suiClient *blockchain.SuiClient) *AuthHandler {
	return &AuthHandler{
		suiClient: suiClient,
	}
}

type walletLoginRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// WalletLogin issues a session token for a wallet address
// POST /auth/wallet
func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req walletLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.suiClient.ValidateWalletAddress(req.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}

	token, err := auth.GenerateToken(req.WalletAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":          token,
		"wallet_address": req.WalletAddress,
	})
}
