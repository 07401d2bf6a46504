package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	S3Bucket    string `env:"S3_BUCKET"`
	AWSRegion   string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	CachePrefix string `env:"CACHE_PREFIX" envDefault:"analytics-cache/"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	APIKey      string `env:"API_KEY"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`

	AnalyticsCacheTTL   time.Duration `env:"ANALYTICS_CACHE_TTL" envDefault:"24h"`
	AnalyticsJobTimeout time.Duration `env:"ANALYTICS_JOB_TIMEOUT" envDefault:"30s"`
	AnalyticsWorkers    int           `env:"ANALYTICS_WORKERS" envDefault:"2"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Default().Warn("loading .env failed", "error", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.AnalyticsWorkers < 1 {
		cfg.AnalyticsWorkers = 1
	}
	return &cfg, nil
}
