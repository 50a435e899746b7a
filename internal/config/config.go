package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"shopify-feed-service/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Storage
	DataDir    string // sqlite db + settings live here
	UploadsDir string // raw source files
	ResultsDir string // job artifacts
	DBPath     string

	// Redis (optional; enables the redis description-cache backend)
	RedisURL string

	// Job engine
	WorkerCount int

	// LLM (OpenAI-compatible)
	LLMBaseURL     string
	LLMEndpoint    string // chat|completions
	LLMModel       string
	LLMAPIKeyEnv   string
	LLMTimeout     int // seconds
	LLMTemperature float64
	LLMMaxTokens   int
	LLMRateSleep   float64 // seconds between consecutive calls
	LLMCacheDir    string

	// Transform defaults
	DefaultQty    int
	DefaultGrams  int
	BrandStrip    string
	VendorName    string
	BrandName     string
	BrandAudience string

	// Shopify
	ShopifyStore      string
	ShopifyToken      string
	ShopifyAPIVersion string
}

func Load() *Config {
	workerCount, _ := strconv.Atoi(getEnv("WORKER_COUNT", "2"))
	if workerCount < 1 {
		workerCount = 1
	}
	defaultQty, _ := strconv.Atoi(getEnv("DEFAULT_QTY", "50"))
	defaultGrams, _ := strconv.Atoi(getEnv("DEFAULT_GRAMS", "400"))
	llmTimeout, _ := strconv.Atoi(getEnv("LLM_TIMEOUT", "30"))
	llmMaxTokens, _ := strconv.Atoi(getEnv("LLM_MAX_TOKENS", "250"))
	llmTemperature, _ := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.7"), 64)
	llmRateSleep, _ := strconv.ParseFloat(getEnv("LLM_RATE_SLEEP", "0"), 64)

	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		Port:        getEnv("PORT", "8087"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DataDir:    dataDir,
		UploadsDir: getEnv("UPLOADS_DIR", "uploads"),
		ResultsDir: getEnv("RESULTS_DIR", "results"),
		DBPath:     filepath.Join(dataDir, "app.sqlite3"),

		RedisURL: os.Getenv("REDIS_URL"),

		WorkerCount: workerCount,

		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMEndpoint:    getEnv("LLM_ENDPOINT", "chat"),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKeyEnv:   getEnv("LLM_API_KEY_ENV", "OPENAI_API_KEY"),
		LLMTimeout:     llmTimeout,
		LLMTemperature: llmTemperature,
		LLMMaxTokens:   llmMaxTokens,
		LLMRateSleep:   llmRateSleep,
		LLMCacheDir:    getEnv("LLM_CACHE_DIR", filepath.Join(dataDir, "describe-cache")),

		DefaultQty:    defaultQty,
		DefaultGrams:  defaultGrams,
		BrandStrip:    getEnv("BRAND_STRIP_VALUE", "zummer"),
		VendorName:    getEnv("VENDOR", "Zummer"),
		BrandName:     getEnv("LLM_BRAND", "Zummer"),
		BrandAudience: getEnv("LLM_AUDIENCE", "Modern Indian women, 25-35"),

		ShopifyStore:      os.Getenv("SHOPIFY_STORE"),
		ShopifyToken:      os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		ShopifyAPIVersion: getEnv("SHOPIFY_API_VERSION", "2024-07"),
	}
}

// EnsureDirs creates the working directories if missing.
func (cfg *Config) EnsureDirs() error {
	for _, dir := range []string{cfg.DataDir, cfg.UploadsDir, cfg.ResultsDir, cfg.LLMCacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Job{},
		&models.FileInfo{},
	); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
