package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"smartspend/internal/auth"
	"smartspend/internal/config"
	"smartspend/internal/database"
	"smartspend/internal/handlers"
	"smartspend/internal/logger"
	"smartspend/internal/middleware"
	"smartspend/internal/services"
	"smartspend/internal/validator"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Connect to MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbManager, err := database.NewManager(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbManager.Close(context.Background()); err != nil {
			log.Warnf("database disconnect error: %v", err)
		}
	}()

	if err := dbManager.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}

	// Initialize services
	tokenService := auth.NewTokenService(appConfig.JWTSecret, appConfig.JWTExpiration)
	userService := services.NewUserService(dbManager.Users())
	transactionService := services.NewTransactionService(dbManager.Transactions())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokenService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)

	// Register custom request validators
	validator.Register()

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     appConfig.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "SmartSpend API is running"})
	})

	api := router.Group("/api")

	// Public routes
	authRoutes := api.Group("/auth")
	authRoutes.POST("/signup", authHandler.Signup)
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.GET("/me", middleware.AuthMiddleware(tokenService), authHandler.GetMe)

	// Protected routes
	transactions := api.Group("/transactions")
	transactions.Use(middleware.AuthMiddleware(tokenService))
	transactions.GET("", transactionHandler.List)
	transactions.POST("", transactionHandler.Create)
	transactions.PUT("/:id", transactionHandler.Update)
	transactions.DELETE("/:id", transactionHandler.Delete)

	log.Infof("Starting SmartSpend backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
