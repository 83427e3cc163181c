package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server captures process level configuration.
type Server struct {
	Addr    string
	BaseURL string

	Database DatabaseConfig
	Redis    RedisConfig
	Ledger   LedgerConfig
	Anchor   AnchorWorkerConfig

	ShareSigningKey string
	ShareMaxTTL     time.Duration

	VerifyRatePerMinute int
	VerifyRateBurst     int
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LedgerConfig holds anchoring client configuration. When RPCURL is empty the
// mock anchorer is selected at startup.
type LedgerConfig struct {
	RPCURL       string
	ContractAddr string
	PrivateKey   string
	ChainID      int64
	CallTimeout  time.Duration
}

// AnchorWorkerConfig controls the deferred anchoring worker that retries
// credentials left pending after a failed anchor attempt.
type AnchorWorkerConfig struct {
	Interval  time.Duration
	Grace     time.Duration
	BatchSize int
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present.
func FromEnv() Server {
	_ = godotenv.Load()

	return Server{
		Addr:    envOr("ATTEST_ADDR", ":8080"),
		BaseURL: envOr("ATTEST_BASE_URL", "http://localhost:8080"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Ledger: LedgerConfig{
			RPCURL:       os.Getenv("LEDGER_RPC_URL"),
			ContractAddr: os.Getenv("LEDGER_CONTRACT_ADDRESS"),
			PrivateKey:   os.Getenv("LEDGER_PRIVATE_KEY"),
			ChainID:      int64(envInt("LEDGER_CHAIN_ID", 11155111)),
			CallTimeout:  envDuration("LEDGER_CALL_TIMEOUT", 15*time.Second),
		},
		Anchor: AnchorWorkerConfig{
			Interval:  envDuration("ANCHOR_RETRY_INTERVAL", 5*time.Minute),
			Grace:     envDuration("ANCHOR_RETRY_GRACE", time.Minute),
			BatchSize: envInt("ANCHOR_RETRY_BATCH", 25),
		},
		ShareSigningKey: envOr("SHARE_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ShareMaxTTL:     envDuration("SHARE_MAX_TTL", 168*time.Hour),

		VerifyRatePerMinute: envInt("VERIFY_RATE_PER_MINUTE", 60),
		VerifyRateBurst:     envInt("VERIFY_RATE_BURST", 10),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
