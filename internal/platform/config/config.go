package config

import (
	"os"
	"strconv"
	"time"
)

// Config aggregates per-concern configuration so main stays lean.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    RedisConfig
	Ledger   Ledger
	Kafka    Kafka
	Webhook  Webhook
	Bulk     Bulk
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	AdminToken string
	JWTIssuer  string
}

// Postgres holds the connection string for the relational stores. Empty means
// in-memory stores only.
type Postgres struct {
	DSN string
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis
// backed features (job queue durability, share tokens fall back to memory).
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Ledger configures the registry ledger adapter. An empty RPCURL selects the
// simulated backend.
type Ledger struct {
	RPCURL          string
	ContractAddress string
	PrivateKey      string
	CallTimeout     time.Duration
	ReceiptTimeout  time.Duration
}

// Kafka configures the audit publisher. Empty brokers fall back to the
// in-process audit worker only.
type Kafka struct {
	Brokers string
	Topic   string
}

// Webhook configures outbound event notification.
type Webhook struct {
	SigningSecret  string
	RequestTimeout time.Duration
	MaxRetries     int
}

// Bulk bounds batch processing.
type Bulk struct {
	MaxBatchSize int
	Concurrency  int
}

// FromEnv builds a Config from environment variables. Defaults favour local
// development: simulated ledger, in-memory stores, no kafka.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:       getEnv("CREDVERSE_ADDR", ":8080"),
			AdminToken: os.Getenv("CREDVERSE_ADMIN_TOKEN"),
			JWTIssuer:  getEnv("CREDVERSE_JWT_ISSUER", "credverse"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("CREDVERSE_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CREDVERSE_REDIS_URL"),
			PoolSize:     getEnvInt("CREDVERSE_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("CREDVERSE_REDIS_MIN_IDLE", 2),
			DialTimeout:  getEnvDuration("CREDVERSE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("CREDVERSE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("CREDVERSE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Ledger: Ledger{
			RPCURL:          os.Getenv("CREDVERSE_LEDGER_RPC_URL"),
			ContractAddress: os.Getenv("CREDVERSE_LEDGER_CONTRACT"),
			PrivateKey:      os.Getenv("CREDVERSE_LEDGER_PRIVATE_KEY"),
			CallTimeout:     getEnvDuration("CREDVERSE_LEDGER_CALL_TIMEOUT", 10*time.Second),
			ReceiptTimeout:  getEnvDuration("CREDVERSE_LEDGER_RECEIPT_TIMEOUT", 90*time.Second),
		},
		Kafka: Kafka{
			Brokers: os.Getenv("CREDVERSE_KAFKA_BROKERS"),
			Topic:   getEnv("CREDVERSE_KAFKA_AUDIT_TOPIC", "credverse.audit"),
		},
		Webhook: Webhook{
			SigningSecret:  os.Getenv("CREDVERSE_WEBHOOK_SECRET"),
			RequestTimeout: getEnvDuration("CREDVERSE_WEBHOOK_TIMEOUT", 30*time.Second),
			MaxRetries:     getEnvInt("CREDVERSE_WEBHOOK_MAX_RETRIES", 3),
		},
		Bulk: Bulk{
			MaxBatchSize: getEnvInt("CREDVERSE_BULK_MAX_BATCH", 1000),
			Concurrency:  getEnvInt("CREDVERSE_BULK_CONCURRENCY", 5),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
