package infrastructures

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	DATABASE_URL      string
	REDIS_ADDRESS     string
	REDIS_PASSWORD    string
	IDENTITY_BASE_URL string

	PayoutConfig PayoutConfig

	// Redemption policy
	MinRedeemPoints    int64
	RiskScoreThreshold int

	// Fulfillment queue tuning
	SweepInterval  time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	ClaimLease     time.Duration
	SweepBatchSize int

	// Offerwall postback shared secrets, keyed by lowercase provider code
	PostbackSecrets map[string]string
}

var Config *AppConfig

func LoadConfig() *AppConfig {
	godotenv.Load()

	Config = &AppConfig{
		DATABASE_URL:      os.Getenv("DATABASE_URL"),
		REDIS_ADDRESS:     os.Getenv("REDIS_ADDRESS"),
		REDIS_PASSWORD:    os.Getenv("REDIS_PASSWORD"),
		IDENTITY_BASE_URL: os.Getenv("IDENTITY_BASE_URL"),

		PayoutConfig: PayoutConfig{
			APIKey:      os.Getenv("PAYOUT_API_KEY"),
			Environment: getEnv("PAYOUT_ENVIRONMENT", "sandbox"),
			BaseURL:     os.Getenv("PAYOUT_BASE_URL"),
			Timeout:     getEnvDuration("PAYOUT_TIMEOUT", 30*time.Second),
		},

		MinRedeemPoints:    getEnvInt64("MIN_REDEEM_POINTS", 100),
		RiskScoreThreshold: getEnvInt("RISK_SCORE_THRESHOLD", 80),

		SweepInterval:  getEnvDuration("FULFILLMENT_SWEEP_INTERVAL", 15*time.Second),
		MaxAttempts:    getEnvInt("FULFILLMENT_MAX_ATTEMPTS", 5),
		BackoffBase:    getEnvDuration("FULFILLMENT_BACKOFF_BASE", 30*time.Second),
		BackoffCap:     getEnvDuration("FULFILLMENT_BACKOFF_CAP", 30*time.Minute),
		ClaimLease:     getEnvDuration("FULFILLMENT_CLAIM_LEASE", 2*time.Minute),
		SweepBatchSize: getEnvInt("FULFILLMENT_SWEEP_BATCH", 50),

		PostbackSecrets: loadPostbackSecrets(),
	}

	return Config
}

// loadPostbackSecrets collects POSTBACK_SECRET_<PROVIDER> variables into a map
// keyed by lowercase provider code.
func loadPostbackSecrets() map[string]string {
	secrets := map[string]string{}
	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, "POSTBACK_SECRET_") {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[1] == "" {
			continue
		}
		provider := strings.ToLower(strings.TrimPrefix(parts[0], "POSTBACK_SECRET_"))
		secrets[provider] = parts[1]
	}
	return secrets
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
