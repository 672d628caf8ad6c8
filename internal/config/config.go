package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the server.
// Values are read from the environment, with a .env file loaded first if present.
type Config struct {
	HTTPAddr string
	LogLevel string
	LogPretty bool

	// Database
	DBConnStr string

	// Price cache / refresh policy
	PriceTTL        time.Duration // freshness window for a cached price
	RefreshCooldown time.Duration // minimum gap between two full refreshes
	RefreshBatch    int           // instruments fetched concurrently per batch
	BatchDelay      time.Duration // pause between batches
	MaxPriceRetries int           // adapter failures before a key stops retrying
	RefreshSchedule string        // cron spec for background refresh, empty disables

	// External price feeds
	StockSheetURL string // CSV-published stock price sheet
	NAVFeedURL    string // AMFI-style NAV dump

	// Auth
	OTPTTL time.Duration
}

// Load reads configuration from the environment.
// A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getEnvBool("LOG_PRETTY", false),
		DBConnStr:       os.Getenv("DB_CONN_STR"),
		PriceTTL:        getEnvDuration("PRICE_TTL", 15*time.Minute),
		RefreshCooldown: getEnvDuration("REFRESH_COOLDOWN", 5*time.Minute),
		RefreshBatch:    getEnvInt("REFRESH_BATCH", 3),
		BatchDelay:      getEnvDuration("BATCH_DELAY", 500*time.Millisecond),
		MaxPriceRetries: getEnvInt("MAX_PRICE_RETRIES", 3),
		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "@every 15m"),
		StockSheetURL:   os.Getenv("STOCK_SHEET_URL"),
		NAVFeedURL:      os.Getenv("NAV_FEED_URL"),
		OTPTTL:          getEnvDuration("OTP_TTL", 5*time.Minute),
	}

	if cfg.DBConnStr == "" {
		// Build the connection string from individual vars (Docker friendly)
		host := getEnv("DB_HOST", "localhost")
		port := getEnv("DB_PORT", "5432")
		user := getEnv("DB_USER", "postgres")
		password := getEnv("DB_PASSWORD", "postgres")
		dbname := getEnv("DB_NAME", "nivesh")

		cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}

	if cfg.RefreshBatch < 1 {
		return nil, fmt.Errorf("REFRESH_BATCH must be at least 1, got %d", cfg.RefreshBatch)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
