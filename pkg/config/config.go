package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/capsule/pkg/observability"
	"github.com/platinummonkey/capsule/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// GitHub identity provider configuration
	GitHub GitHubConfig

	// Bearer token configuration
	Token TokenConfig

	// Upload policy configuration
	Upload UploadConfig

	// Blob storage configuration
	Storage storage.Config

	// Database configuration
	DatabaseURL string

	// Redis configuration (rate limiting; optional)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// CORSOrigins lists the origins allowed to call the API from a browser
	CORSOrigins []string

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// GitHubConfig holds the upstream identity provider endpoints and credentials
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	// TokenURL and ProfileURL default to github.com; tests point them at
	// local fakes.
	TokenURL   string
	ProfileURL string
}

// TokenConfig holds bearer token signing configuration
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// UploadConfig holds upload pipeline policy
type UploadConfig struct {
	// MaxBytes is the hard stream-level cap on uploaded payloads
	MaxBytes int64
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

const (
	defaultUploadMaxBytes = 5_242_880 // 5 MiB
	defaultTokenTTL       = 30 * 24 * time.Hour
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		GitHub:        loadGitHubConfig(),
		Token:         loadTokenConfig(),
		Upload:        loadUploadConfig(),
		Storage:       loadStorageConfig(),
		DatabaseURL:   getEnv("CAPSULE_DATABASE_URL", ""),
		RedisURL:      getEnv("CAPSULE_REDIS_URL", ""),
		RedisPassword: getEnv("CAPSULE_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("CAPSULE_REDIS_DB", 0),
		CORSOrigins:   splitAndTrim(getEnv("CAPSULE_CORS_ORIGINS", "*")),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("CAPSULE_HOST", "0.0.0.0"),
		Port:            getEnv("CAPSULE_PORT", "3333"),
		ReadTimeout:     getEnvDuration("CAPSULE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("CAPSULE_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("CAPSULE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("CAPSULE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("CAPSULE_HEALTH_PORT", "9090"),
	}
}

func loadGitHubConfig() GitHubConfig {
	return GitHubConfig{
		ClientID:     getEnv("CAPSULE_GITHUB_CLIENT_ID", ""),
		ClientSecret: getEnv("CAPSULE_GITHUB_CLIENT_SECRET", ""),
		TokenURL:     getEnv("CAPSULE_GITHUB_TOKEN_URL", "https://github.com/login/oauth/access_token"),
		ProfileURL:   getEnv("CAPSULE_GITHUB_PROFILE_URL", "https://api.github.com/user"),
	}
}

func loadTokenConfig() TokenConfig {
	return TokenConfig{
		Secret: getEnv("CAPSULE_TOKEN_SECRET", ""),
		TTL:    getEnvDuration("CAPSULE_TOKEN_TTL", defaultTokenTTL),
	}
}

func loadUploadConfig() UploadConfig {
	return UploadConfig{
		MaxBytes: getEnvInt64("CAPSULE_UPLOAD_MAX_BYTES", defaultUploadMaxBytes),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if storageType := getEnv("CAPSULE_STORAGE_TYPE", ""); storageType != "" {
		cfg.Type = storageType
	}
	if fsRoot := getEnv("CAPSULE_FILESYSTEM_ROOT", ""); fsRoot != "" {
		cfg.FilesystemRoot = fsRoot
	}

	if s3Endpoint := getEnv("CAPSULE_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("CAPSULE_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("CAPSULE_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("CAPSULE_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("CAPSULE_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	if s3UsePathStyle := getEnv("CAPSULE_S3_USE_PATH_STYLE", ""); s3UsePathStyle != "" {
		cfg.S3UsePathStyle = strings.ToLower(s3UsePathStyle) == "true"
	}

	return cfg
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("CAPSULE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("CAPSULE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("CAPSULE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("CAPSULE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("CAPSULE_OTEL_SERVICE_NAME", "capsule"),
		OTelServiceVersion: getEnv("CAPSULE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("CAPSULE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.GitHub.ClientID == "" || c.GitHub.ClientSecret == "" {
		return fmt.Errorf("GitHub client id and secret are required")
	}

	if c.Token.Secret == "" {
		return fmt.Errorf("token signing secret is required")
	}
	if c.Token.TTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required")
	}

	switch c.Storage.Type {
	case "filesystem":
		if c.Storage.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be filesystem or s3)", c.Storage.Type)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// splitAndTrim splits a comma-separated list, dropping empty entries
func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
