package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/peptide-shop/config"
	"github.com/yourusername/peptide-shop/cooldown"
	"github.com/yourusername/peptide-shop/handlers"
	"github.com/yourusername/peptide-shop/middleware"
	"github.com/yourusername/peptide-shop/models"
	"github.com/yourusername/peptide-shop/notify"
	"github.com/yourusername/peptide-shop/oracle"
	"github.com/yourusername/peptide-shop/payment"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Cooldown store for the resend throttle
	cooldownStore := cooldown.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := cooldownStore.Ping(context.Background()); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	gate := cooldown.NewGate(cooldownStore, cfg.ResendCooldown)

	// Payment confirmation engine
	notifier := notify.NewLogNotifier()
	verifier := oracle.NewHorizonOracle(cfg.HorizonURL)
	manager := payment.NewManager(verifier, handlers.NewGormFinalizer(db, notifier), payment.Options{
		AddressPollInterval: cfg.AddressPollInterval,
		TxPollInterval:      cfg.TxPollInterval,
		Lookback:            cfg.OracleLookback,
		MaxLifetime:         cfg.SessionMaxLifetime,
	})

	// Setup router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "peptide-shop-api",
		})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(db, cfg)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)

		// Checkout payment confirmation endpoints
		checkoutHandler := handlers.NewCheckoutHandler(db, cfg, manager)
		api.POST("/checkout/sessions", checkoutHandler.ArmSession)
		api.GET("/checkout/sessions/:token", checkoutHandler.GetSession)
		api.DELETE("/checkout/sessions/:token", checkoutHandler.CancelSession)

		// Order endpoints
		orderHandler := handlers.NewOrderHandler(db, cfg, gate, notifier)
		authed := api.Group("")
		authed.Use(middleware.JwtAuthMiddleware(cfg))
		authed.POST("/orders", orderHandler.CreateOrder)
		authed.GET("/orders", orderHandler.ListOrders)
		api.GET("/orders/:id", orderHandler.GetOrder)
		api.POST("/orders/:id/resend-confirmation", orderHandler.ResendConfirmation)

		// Back-office endpoints
		admin := api.Group("/admin")
		admin.Use(middleware.JwtAuthMiddleware(cfg), middleware.RequireRole(models.RoleAdmin))
		admin.GET("/settlements", orderHandler.ListSettlements)
	}

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Peptide Shop API server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
