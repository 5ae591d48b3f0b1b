package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"sportsbook/internal/auth"
	"sportsbook/internal/blockchain"
	"sportsbook/internal/config"
	"sportsbook/internal/database"
	"sportsbook/internal/handlers"
	"sportsbook/internal/jobs"
	"sportsbook/internal/repository"
	"sportsbook/internal/services"
	"sportsbook/internal/sportsfeed"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Sui client
	suiClient := blockchain.NewSuiClient(
		cfg.Sui.Network,
		cfg.Sui.TreasuryAddress,
		cfg.Sui.SbetCoinType,
	)

	// Initialize sports feed client and event cache
	feedClient := sportsfeed.NewClient(cfg.SportsFeed.BaseURL, cfg.SportsFeed.APIKey)
	eventCache := sportsfeed.NewEventCache()

	// Initialize repository and services
	repo := repository.NewRepository(database.GetDB())
	ledgerService := services.NewLedgerService(database.GetDB())
	revenueService := services.NewRevenueService(ledgerService)
	admissionGate := services.NewAdmissionGate(eventCache, cfg.SportsFeed.LiveMaxAge, cfg.SportsFeed.UpcomingMaxAge)
	wagerService := services.NewWagerService(
		repo,
		ledgerService,
		revenueService,
		admissionGate,
		suiClient,
		decimal.NewFromFloat(cfg.App.PlatformFeePercent),
	)
	settlementService := services.NewSettlementService(repo, wagerService, feedClient, suiClient, ledgerService, 500)
	walletService := services.NewWalletService(ledgerService, suiClient)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(suiClient)
	walletHandler := handlers.NewWalletHandler(walletService)
	wagerHandler := handlers.NewWagerHandler(wagerService, admissionGate, settlementService)

	// Start background jobs
	refresher := jobs.NewEventRefresher(
		feedClient,
		eventCache,
		cfg.SportsFeed.Sport,
		cfg.SportsFeed.LiveInterval,
		cfg.SportsFeed.UpcomingInterval,
	)
	go refresher.Start()

	settlementJob := jobs.NewSettlementJob(settlementService, cfg.App.SettleInterval)
	go settlementJob.Start()

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	router.POST("/auth/wallet", authHandler.WalletLogin)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Wallet endpoints
		api.GET("/wallet/balance", walletHandler.GetBalance)
		api.POST("/wallet/deposit", walletHandler.Deposit)
		api.POST("/wallet/withdraw", walletHandler.Withdraw)

		// Wager endpoints
		api.POST("/wagers/admit", wagerHandler.Admit)
		api.POST("/wagers", wagerHandler.PlaceWager)
		api.GET("/wagers", wagerHandler.GetMyWagers)
		api.GET("/wagers/:id", wagerHandler.GetWager)
		api.POST("/wagers/:id/cashout", wagerHandler.CashOut)
	}

	// Admin routes (protected)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	{
		admin.POST("/wagers/:id/settle", wagerHandler.SettleWager)
		admin.POST("/settlement/run", wagerHandler.TriggerSettlement)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	settlementJob.Stop()
	refresher.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
