package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	JWT           JWTConfig           `envconfig:"JWT"`
	Quota         QuotaConfig         `envconfig:"QUOTA"`
	DynamoDB      DynamoDBConfig      `envconfig:"DYNAMODB"`
	RateLimit     RateLimitConfig     `envconfig:"RATE_LIMIT"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
	CORS          CORSConfig          `envconfig:"CORS"`
	Log           LogConfig           `envconfig:"LOG"`
	AWS           AWSConfig           `envconfig:"AWS"`
}

type AWSConfig struct {
	Region     string `envconfig:"REGION" default:"us-east-1"`
	Profile    string `envconfig:"PROFILE" default:""`
	SecretName string `envconfig:"SECRET_NAME" default:""`
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8000"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
}

type RedisConfig struct {
	Address             string        `envconfig:"ADDRESS" default:"localhost:6379"`
	Password            string        `envconfig:"PASSWORD" default:""`
	Database            int           `envconfig:"DATABASE" default:"0"`
	MaxRetries          int           `envconfig:"MAX_RETRIES" default:"3"`
	PoolSize            int           `envconfig:"POOL_SIZE" default:"100"`
	PoolTimeout         time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`
	TLSEnabled          bool          `envconfig:"TLS_ENABLED" default:"false"`
	PasswordFromSecrets bool          `envconfig:"PASSWORD_FROM_SECRETS" default:"false"`
}

// JWTConfig carries the signing material for self-issued bearer tokens.
// Secret and Algorithm have no defaults on purpose: an unconfigured signer
// must abort startup, never fall back to a guessable value.
type JWTConfig struct {
	Secret     string `envconfig:"SECRET"`
	Algorithm  string `envconfig:"ALGORITHM"`
	TTLMinutes int    `envconfig:"TTL_MINUTES" default:"15"`
}

// TTL returns the configured token lifetime.
func (c *JWTConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// QuotaConfig bounds free anonymous usage. The limit is cumulative per
// client address, derived from persisted search history.
type QuotaConfig struct {
	AnonymousLimit int `envconfig:"ANONYMOUS_LIMIT" default:"20"`
}

type DynamoDBConfig struct {
	UsersTableName    string `envconfig:"USERS_TABLE_NAME" default:"homescout-users"`
	ListingsTableName string `envconfig:"LISTINGS_TABLE_NAME" default:"homescout-listings"`
	HistoryTableName  string `envconfig:"HISTORY_TABLE_NAME" default:"homescout-search-history"`
	Region            string `envconfig:"REGION" default:"us-east-1"`
}

type RateLimitConfig struct {
	RPS         int           `envconfig:"RPS" default:"50"`
	Burst       int           `envconfig:"BURST" default:"100"`
	WindowSize  time.Duration `envconfig:"WINDOW_SIZE" default:"1s"`
	Enabled     bool          `envconfig:"ENABLED" default:"true"`
	ExemptPaths []string      `envconfig:"EXEMPT_PATHS" default:"/healthz,/readyz,/metrics"`
}

type ObservabilityConfig struct {
	MetricsPath    string  `envconfig:"METRICS_PATH" default:"/metrics"`
	OTLPEndpoint   string  `envconfig:"OTLP_ENDPOINT" default:"http://localhost:4318"`
	TracingEnabled bool    `envconfig:"TRACING_ENABLED" default:"false"`
	SampleRate     float64 `envconfig:"SAMPLE_RATE" default:"0.1"`
}

type CORSConfig struct {
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

var hmacAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

func validateConfig(cfg *Config) error {
	// Signing material is a fatal startup condition, not a per-request error.
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if strings.TrimSpace(cfg.JWT.Algorithm) == "" {
		return fmt.Errorf("JWT_ALGORITHM must not be empty")
	}
	if !hmacAlgorithms[cfg.JWT.Algorithm] {
		return fmt.Errorf("unsupported JWT algorithm: %s", cfg.JWT.Algorithm)
	}
	if cfg.JWT.TTLMinutes <= 0 {
		return fmt.Errorf("invalid JWT TTL: %d minutes", cfg.JWT.TTLMinutes)
	}

	if cfg.Quota.AnonymousLimit < 0 {
		return fmt.Errorf("invalid anonymous quota limit: %d", cfg.Quota.AnonymousLimit)
	}

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", cfg.Server.Port)
	}

	if cfg.Observability.SampleRate < 0 || cfg.Observability.SampleRate > 1 {
		return fmt.Errorf("invalid tracing sample rate: %f", cfg.Observability.SampleRate)
	}

	return nil
}
