package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourusername/peptide-shop/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port             string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	JWTSecret        string
	JWTRefreshSecret string

	// Verification oracle settings
	HorizonURL        string
	NetworkPassphrase string
	OracleLookback    time.Duration

	// Payment confirmation engine settings
	AddressPollInterval time.Duration
	TxPollInterval      time.Duration
	SessionMaxLifetime  time.Duration

	// Notification resend throttle
	ResendCooldown time.Duration
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	return &Config{
		Port:             os.Getenv("PORT"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvIntOrDefault("REDIS_DB", 0),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),

		HorizonURL:        getEnvOrDefault("HORIZON_URL", "https://horizon-testnet.stellar.org"),
		NetworkPassphrase: getEnvOrDefault("NETWORK_PASSPHRASE", "Test SDF Network ; September 2015"),
		OracleLookback:    getEnvDurationOrDefault("ORACLE_LOOKBACK_MINUTES", 60) * time.Minute,

		AddressPollInterval: getEnvDurationOrDefault("ADDRESS_POLL_INTERVAL_SECONDS", 8) * time.Second,
		TxPollInterval:      getEnvDurationOrDefault("TX_POLL_INTERVAL_SECONDS", 10) * time.Second,
		SessionMaxLifetime:  getEnvDurationOrDefault("SESSION_MAX_LIFETIME_HOURS", 24) * time.Hour,

		ResendCooldown: getEnvDurationOrDefault("RESEND_COOLDOWN_MINUTES", 15) * time.Minute,
	}, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Order{}, &models.CompletionRecord{}, &models.CooldownEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvIntOrDefault(key, defaultValue))
}
