package config

import (
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration.
type Config struct {
	Port            string   `envconfig:"PORT" default:"8080"`
	Env             string   `envconfig:"ENV" default:"dev"`
	LogLevel        string   `envconfig:"LOG_LEVEL" default:"info"`
	CORSAllowOrigin []string `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:5173"`
	DatabaseURL     string   `envconfig:"DATABASE_URL"`
	JWTSecret       string   `envconfig:"JWT_SECRET"`

	ObjectStoreType string `envconfig:"OBJECT_STORE" default:"local"`
	LocalStoreDir   string `envconfig:"LOCAL_STORE_DIR" default:"./data"`
	AWSRegion       string `envconfig:"AWS_REGION"`
	S3Bucket        string `envconfig:"S3_BUCKET"`
	S3Prefix        string `envconfig:"S3_PREFIX"`
	SSEKMSKeyID     string `envconfig:"SSE_KMS_KEY_ID"`
	MinIO           MinIOConfig

	QueueBackend      string `envconfig:"QUEUE_BACKEND" default:"inline"`
	SQSQueueURL       string `envconfig:"RA_SQS_QUEUE_URL"`
	RedisAddr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"4"`
	MetricsAddr       string `envconfig:"METRICS_ADDR" default:":9090"`

	Pipeline PipelineConfig
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `envconfig:"MINIO_ENDPOINT"`
	AccessKeyID     string `envconfig:"MINIO_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"MINIO_SECRET_ACCESS_KEY"`
	UseSSL          bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	Bucket          string `envconfig:"MINIO_BUCKET" default:"resumes"`
	Region          string `envconfig:"MINIO_REGION"`
}

// PipelineConfig tunes the resume processing pipeline.
type PipelineConfig struct {
	MaxRetries    int           `envconfig:"PIPELINE_MAX_RETRIES" default:"3"`
	StaleAfter    time.Duration `envconfig:"PIPELINE_STALE_AFTER" default:"15m"`
	SweepInterval time.Duration `envconfig:"PIPELINE_SWEEP_INTERVAL" default:"1m"`
	RetryBackoff  time.Duration `envconfig:"PIPELINE_RETRY_BACKOFF" default:"30s"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Printf("config: %v; falling back to defaults where invalid", err)
	}
	return normalize(cfg)
}

func normalize(cfg Config) Config {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.QueueBackend = normalizeQueueBackend(cfg.QueueBackend)
	cfg.CORSAllowOrigin = trimAll(cfg.CORSAllowOrigin)

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	if cfg.Pipeline.MaxRetries <= 0 {
		cfg.Pipeline.MaxRetries = 3
	}
	if cfg.Pipeline.StaleAfter <= 0 {
		cfg.Pipeline.StaleAfter = 15 * time.Minute
	}
	if cfg.Pipeline.SweepInterval <= 0 {
		cfg.Pipeline.SweepInterval = time.Minute
	}
	if cfg.Pipeline.RetryBackoff < 0 {
		cfg.Pipeline.RetryBackoff = 0
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 4
	}
	return cfg
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "asynq", "redis":
		return "asynq"
	default:
		return "inline"
	}
}

// IsDevLike reports whether the environment allows in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
