package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	vstrings "verity/pkg/platform/strings"
)

// Config is the process configuration assembled from the environment.
type Config struct {
	Server   Server
	Auth     Auth
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Pipeline PipelineConfig
	// PolicyFile points at the YAML scoring/workflow policy. Empty means defaults.
	PolicyFile string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	Environment     string

	// Per-caller API rate limit. Zero RPS disables it.
	RequestRPS   float64
	RequestBurst int
}

// Auth configures bearer token validation.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
}

// PostgresConfig selects durable storage. An empty DSN keeps everything in memory.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig selects the shared result cache. An empty URL uses the in-process cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// KafkaConfig selects the notification sink. No brokers means events are logged only.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	Partitions   int32
	Replication  int16
	ClientID     string
	QueueSize    int
	EnsureTopic  bool
	WriteTimeout time.Duration
}

// PipelineConfig tunes outbound adapter calls.
type PipelineConfig struct {
	MaxConcurrency   int
	AttemptTimeout   time.Duration
	MaxAttempts      int
	InitialBackoff   time.Duration
	BackoffFactor    float64
	MaxBackoff       time.Duration
	AdapterRPS       float64
	AdapterBurst     int
	BreakerFailures  int
	BreakerCooldown  time.Duration
	CacheSweepSpec   string
	RegistryEndpoint string
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("VERITY_ADDR", ":8080"),
			ShutdownTimeout: envDuration("VERITY_SHUTDOWN_TIMEOUT", 15*time.Second),
			Environment:     envString("VERITY_ENV", "development"),
			RequestRPS:      envFloat("VERITY_REQUEST_RPS", 20),
			RequestBurst:    envInt("VERITY_REQUEST_BURST", 40),
		},
		Auth: Auth{
			// Development default; production deployments must override it.
			JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        envString("JWT_ISSUER", "verity"),
			Audience:      envString("JWT_AUDIENCE", "verity-api"),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     envBool("DATABASE_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			KeyPrefix:    envString("REDIS_KEY_PREFIX", "verity:cache:"),
		},
		Kafka: KafkaConfig{
			Brokers:      envList("KAFKA_BROKERS"),
			Topic:        envString("KAFKA_TOPIC", "verity.application-events"),
			Partitions:   int32(envInt("KAFKA_TOPIC_PARTITIONS", 3)),
			Replication:  int16(envInt("KAFKA_TOPIC_REPLICATION", 1)),
			ClientID:     envString("KAFKA_CLIENT_ID", "verity"),
			QueueSize:    envInt("NOTIFY_QUEUE_SIZE", 256),
			EnsureTopic:  envBool("KAFKA_ENSURE_TOPIC", true),
			WriteTimeout: envDuration("KAFKA_WRITE_TIMEOUT", 5*time.Second),
		},
		Pipeline: PipelineConfig{
			MaxConcurrency:   envInt("PIPELINE_MAX_CONCURRENCY", 8),
			AttemptTimeout:   envDuration("PIPELINE_ATTEMPT_TIMEOUT", 5*time.Second),
			MaxAttempts:      envInt("PIPELINE_MAX_ATTEMPTS", 3),
			InitialBackoff:   envDuration("PIPELINE_INITIAL_BACKOFF", 200*time.Millisecond),
			BackoffFactor:    envFloat("PIPELINE_BACKOFF_FACTOR", 2),
			MaxBackoff:       envDuration("PIPELINE_MAX_BACKOFF", 5*time.Second),
			AdapterRPS:       envFloat("PIPELINE_ADAPTER_RPS", 50),
			AdapterBurst:     envInt("PIPELINE_ADAPTER_BURST", 10),
			BreakerFailures:  envInt("PIPELINE_BREAKER_FAILURES", 5),
			BreakerCooldown:  envDuration("PIPELINE_BREAKER_COOLDOWN", 30*time.Second),
			CacheSweepSpec:   envString("CACHE_SWEEP_SPEC", "@every 1m"),
			RegistryEndpoint: os.Getenv("REGISTRY_ENDPOINT"),
		},
		PolicyFile: os.Getenv("VERITY_POLICY_FILE"),
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	return vstrings.DedupeAndTrim(strings.Split(raw, ","))
}
