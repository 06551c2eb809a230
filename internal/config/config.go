package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the QC Vision backend.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"qc-vision-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"QC_API_PORT" envDefault:"8090"`
	LogLevel        string        `env:"QC_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database
	DatabaseURL string `env:"QC_DATABASE_URL,notEmpty"`

	// Database Connection Pool
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Object Storage (S3-compatible, MinIO in deployment)
	S3Endpoint     string        `env:"QC_S3_ENDPOINT" envDefault:"http://minio:9000"`
	S3Region       string        `env:"QC_S3_REGION" envDefault:"us-east-1"`
	S3Bucket       string        `env:"QC_S3_BUCKET" envDefault:"qc-vision-photos"`
	S3AccessKeyID  string        `env:"QC_S3_ACCESS_KEY_ID"`
	S3SecretKey    string        `env:"QC_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool          `env:"QC_S3_USE_PATH_STYLE" envDefault:"true"`
	S3PresignTTL   time.Duration `env:"QC_S3_PRESIGN_TTL" envDefault:"1h"`

	// Photo ingestion limits
	MaxUploadBytes     int64 `env:"QC_MAX_UPLOAD_BYTES" envDefault:"10485760"`
	MinImageDimension  int   `env:"QC_MIN_IMAGE_DIMENSION" envDefault:"10"`
	MaxImageDimension  int   `env:"QC_MAX_IMAGE_DIMENSION" envDefault:"10000"`
	MaxOutputDimension int   `env:"QC_MAX_OUTPUT_DIMENSION" envDefault:"2000"`
	JPEGQuality        int   `env:"QC_JPEG_QUALITY" envDefault:"85"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 * 1024 * 1024
	}
	if cfg.MaxOutputDimension <= 0 {
		cfg.MaxOutputDimension = 2000
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 85
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
