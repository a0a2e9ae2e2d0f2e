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
	"github.com/robfig/cron/v3"

	"model-market/internal/auth"
	"model-market/internal/config"
	"model-market/internal/database"
	"model-market/internal/engine"
	"model-market/internal/handlers"
	"model-market/internal/jobs"
	"model-market/internal/repository"
	"model-market/internal/services"
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

	db := database.GetDB()
	repo := repository.NewRepository(db)

	// Initialize services
	authService := services.NewAuthService(db)
	registryService := services.NewRegistryService(db, repo)
	trainingEngine := engine.NewSimulatedEngine(cfg.Training.SimulatorStep)
	orchestrator := services.NewTrainingOrchestrator(db, repo, registryService, trainingEngine)
	publishingService := services.NewPublishingService(db, repo, registryService)
	leasingService := services.NewLeasingService(db, repo, cfg.Leasing.CommissionBps)
	marketplaceService := services.NewMarketplaceService(db)
	reviewService := services.NewReviewService(db, repo)
	dashboardService := services.NewDashboardService(repo)

	// The simulated engine reports back through the orchestrator's callbacks.
	trainingEngine.Start(orchestrator)
	defer trainingEngine.Stop()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	modelHandler := handlers.NewModelHandler(registryService, publishingService, repo)
	trainingHandler := handlers.NewTrainingHandler(orchestrator)
	engineHandler := handlers.NewEngineHandler(orchestrator)
	marketplaceHandler := handlers.NewMarketplaceHandler(marketplaceService, reviewService)
	leaseHandler := handlers.NewLeaseHandler(leasingService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	adminHandler := handlers.NewAdminHandler(repo, leasingService, orchestrator)

	// Scheduled jobs
	scheduler := cron.New()
	if _, err := scheduler.AddJob("@every 1m", jobs.NewLeaseExpirer(leasingService)); err != nil {
		log.Fatalf("Failed to schedule lease expirer: %v", err)
	}
	if _, err := scheduler.AddJob("@every 30s", jobs.NewTrainingReconciler(orchestrator)); err != nil {
		log.Fatalf("Failed to schedule training reconciler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Println("Scheduled jobs started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	// Add additional frontend URL from environment if provided
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
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Training engine callbacks, authenticated by shared secret
	engineRoutes := router.Group("/engine")
	engineRoutes.Use(handlers.EngineAuthMiddleware(cfg.Training.CallbackToken))
	{
		engineRoutes.POST("/jobs/:id/progress", engineHandler.Progress)
		engineRoutes.POST("/jobs/:id/complete", engineHandler.Complete)
		engineRoutes.POST("/jobs/:id/fail", engineHandler.Fail)
	}

	// Public marketplace routes
	router.GET("/api/marketplace", marketplaceHandler.Browse)
	router.GET("/api/marketplace/:id", marketplaceHandler.GetListing)
	router.GET("/api/marketplace/:id/reviews", marketplaceHandler.GetReviews)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Model registry endpoints
		api.POST("/models", modelHandler.CreateModel)
		api.GET("/models", modelHandler.GetMyModels)
		api.GET("/models/:id", modelHandler.GetModel)
		api.DELETE("/models/:id", modelHandler.DeleteModel)
		api.POST("/models/:id/publish", modelHandler.PublishModel)
		api.POST("/models/:id/unpublish", modelHandler.UnpublishModel)
		api.POST("/models/:id/archive", modelHandler.ArchiveModel)

		// Training endpoints
		api.POST("/models/:id/train", trainingHandler.RequestTraining)
		api.GET("/jobs", trainingHandler.GetMyJobs)
		api.GET("/jobs/:id", trainingHandler.GetJob)

		// Marketplace endpoints
		api.POST("/marketplace/:id/reviews", marketplaceHandler.CreateReview)
		api.POST("/marketplace/:id/lease", leaseHandler.Lease)

		// Lease endpoints
		api.GET("/leases", leaseHandler.GetMyLeases)
		api.POST("/leases/:id/cancel", leaseHandler.CancelLease)

		// Dashboard endpoint
		api.GET("/dashboard", dashboardHandler.GetDashboard)

		// Admin endpoints
		admin := api.Group("/admin")
		admin.Use(handlers.AdminMiddleware(repo))
		{
			admin.GET("/models", adminHandler.ListModels)
			admin.POST("/leases/:id/cancel", adminHandler.CancelLease)
			admin.POST("/reconcile", adminHandler.Reconcile)
		}
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
