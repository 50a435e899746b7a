package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"shopify-feed-service/internal/clients"
	"shopify-feed-service/internal/config"
	"shopify-feed-service/internal/engine"
	"shopify-feed-service/internal/handlers"
	"shopify-feed-service/internal/metrics"
	"shopify-feed-service/internal/middleware"
	"shopify-feed-service/internal/repository"
	"shopify-feed-service/internal/settings"
)

// @title Shopify Feed Service API
// @version 1.0.0
// @description Converts vendor listing spreadsheets into Shopify product
// @description import CSVs and pushes product images, via asynchronous jobs.

// @host localhost:8087
// @BasePath /

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal("Failed to create working directories:", err)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client (optional; backs the description cache)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		} else {
			redisClient = redis.NewClient(redisOpts)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("WARNING: Failed to connect to Redis: %v (description cache falls back to files)", err)
				redisClient = nil
			} else {
				log.Println("✓ Redis connected successfully")
			}
			cancel()
		}
	}

	// Initialize settings store
	settingsStore, err := settings.NewStore(filepath.Join(cfg.DataDir, "settings.json"))
	if err != nil {
		log.Fatal("Failed to initialize settings store:", err)
	}

	// Initialize repository, metrics, and the job engine
	jobsRepo := repository.NewJobsRepository(db)
	m := metrics.New(prometheus.DefaultRegisterer)

	eng := engine.New(jobsRepo, m, logrus.NewEntry(logger).WithField("component", "engine"), cfg.WorkerCount)
	if err := eng.Start(); err != nil {
		log.Fatal("Failed to start job engine:", err)
	}

	// Initialize clients
	llmClient := clients.NewLLMClient(cfg)
	shopifyClient := clients.NewShopifyClient(cfg)

	// Initialize handlers
	filesHandler := handlers.NewFilesHandler(jobsRepo, cfg)
	jobsHandler := handlers.NewJobsHandler(eng, jobsRepo, cfg, settingsStore, llmClient, redisClient, m)
	imagesHandler := handlers.NewImagesHandler(eng, cfg, settingsStore, shopifyClient)
	settingsHandler := handlers.NewSettingsHandler(settingsStore, cfg)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Health check endpoints
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Files
	router.POST("/files", filesHandler.Upload)
	router.GET("/files", filesHandler.List)

	// Jobs
	router.GET("/jobs", jobsHandler.List)
	router.GET("/jobs/:id", jobsHandler.Get)
	router.GET("/jobs/:id/download", jobsHandler.Download)
	router.POST("/jobs/transform", jobsHandler.CreateTransform)

	// Image jobs
	router.POST("/jobs/images/by-sku", imagesHandler.CreateBySku)
	router.POST("/jobs/images/by-sku/upload", imagesHandler.CreateBySkuUpload)
	router.POST("/jobs/images/by-base/upload", imagesHandler.CreateByBaseUpload)
	router.POST("/jobs/images/broadcast", imagesHandler.CreateBroadcast)
	router.POST("/jobs/images/staged/attach-by-sku", imagesHandler.CreateStagedAttach)
	router.POST("/uploads/staged/params", imagesHandler.StagedParams)

	// Settings
	router.GET("/settings", settingsHandler.Get)
	router.PUT("/settings", settingsHandler.Put)
	router.POST("/settings/test", settingsHandler.Test)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Shopify feed service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down shopify-feed-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	if err := eng.Stop(ctx); err != nil {
		log.Printf("Error stopping job engine: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Println("Shopify feed service stopped")
}
