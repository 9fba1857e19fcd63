package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()
	logger.Info("Loading environment variables")

	// If no specific paths provided, try default .env
	if len(envFilePath) == 0 {
		logger.Debug("No environment file specified, trying default .env")
		if err := godotenv.Load(); err != nil {
			logger.Warn("No .env file found in current directory")
		}
		return loadFromEnv()
	}

	for _, path := range envFilePath {
		logger.Debug("Looking for environment file", "path", path)
		foundPath, err := FindEnvFile(path)
		if err != nil {
			logger.Debug("Environment file not found", "path", path, "error", err)
			continue
		}

		logger.Info("Loading environment from file", "path", foundPath)
		if err := godotenv.Load(foundPath); err != nil {
			logger.Error("Failed to load environment file", "path", foundPath, "error", err)
			continue
		}
		return loadFromEnv()
	}

	logger.Info("No valid environment files found, using default .env")
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found in current directory")
	}
	return loadFromEnv()
}

func loadFromEnv() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.Default()
	logger.Info("App config loaded",
		"env", cfg.Env,
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
		"idempotency_ttl", cfg.Idempotency.TTL,
		"db", maskValue(cfg.DB.Url),
		"auth_jwt_expiry", cfg.Auth.Jwt.Expiry,
		"ledger_backend", cfg.Ledger.Backend,
		"ledger_key", cfg.Ledger.Key,
		"ledger_write_behind", cfg.Ledger.WriteBehind,
		"urgency_weight", cfg.Ledger.UrgencyWeight,
		"event_bus", cfg.EventBus.Driver,
		"s3_bucket", cfg.S3.Bucket,
	)
	return &cfg, nil
}

// Validate checks the values envconfig cannot express as tags.
func (a *App) Validate() error {
	switch a.Ledger.Backend {
	case BackendMemory, BackendFile, BackendPostgres, BackendRedis, BackendS3:
	default:
		return fmt.Errorf("config: unknown ledger backend %q", a.Ledger.Backend)
	}
	switch a.EventBus.Driver {
	case BusMemory, BusRedis, BusKafka:
	default:
		return fmt.Errorf("config: unknown event bus driver %q", a.EventBus.Driver)
	}
	if a.Auth == nil || a.Auth.Jwt == nil || a.Auth.Jwt.Secret == "" {
		return fmt.Errorf("config: AUTH_JWT_SECRET must not be empty")
	}
	if a.Idempotency != nil && a.Idempotency.TTL <= 0 {
		return fmt.Errorf("config: IDEMPOTENCY_TTL must be positive, got %v", a.Idempotency.TTL)
	}
	if a.Ledger.UrgencyWeight <= 0 {
		return fmt.Errorf("config: LEDGER_URGENCY_WEIGHT must be positive, got %v", a.Ledger.UrgencyWeight)
	}
	if a.Ledger.Backend == BackendPostgres && a.DB.Url == "" {
		return fmt.Errorf("config: DATABASE_URL is required for the postgres backend")
	}
	if a.Ledger.Backend == BackendS3 && a.S3.Bucket == "" {
		return fmt.Errorf("config: S3_BUCKET is required for the s3 backend")
	}
	return nil
}

func maskValue(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
