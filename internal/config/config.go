// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080). Unused in hosted mode.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// AppRoot overrides the sibling src directory (content/ and static/). Empty uses the directory next to the executable, then the embedded copy.
	AppRoot string `mapstructure:"APP_ROOT"`
	// DatabaseURL is the Postgres DSN. Empty keeps learner data in memory (or Redis when REDIS_URL is set).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis URL (redis://host:6379/0) for learner data when DATABASE_URL is empty.
	RedisURL string `mapstructure:"REDIS_URL"`

	// SandboxTimeout is the wall-clock limit for one JavaScript execution (e.g. "2s").
	SandboxTimeout string `mapstructure:"SANDBOX_TIMEOUT"`
	// SandboxMaxSourceBytes is the largest accepted submission or playground source.
	SandboxMaxSourceBytes int `mapstructure:"SANDBOX_MAX_SOURCE_BYTES"`
	// RateLimitRPS and RateLimitBurst bound code execution requests per client.
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
	// TrustedProxyHops is how many reverse proxies in front of the server append to X-Forwarded-For.
	// 0 keys rate limits on the connection's remote address and ignores the header.
	TrustedProxyHops int `mapstructure:"TRUSTED_PROXY_HOPS"`
	// CORSAllowedOrigins is a comma-separated list of origins allowed to call the API. "*" allows any.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// LearnerTokenPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Empty generates an ephemeral key outside production.
	LearnerTokenPrivateKey string `mapstructure:"LEARNER_TOKEN_PRIVATE_KEY"`
	// LearnerTokenPublicKey is the PEM-encoded public key or path to file; used with LEARNER_TOKEN_PRIVATE_KEY.
	LearnerTokenPublicKey string `mapstructure:"LEARNER_TOKEN_PUBLIC_KEY"`
	// LearnerTokenIssuer is the iss claim of learner tokens.
	LearnerTokenIssuer string `mapstructure:"LEARNER_TOKEN_ISSUER"`
	// LearnerTokenAudience is the aud claim of learner tokens.
	LearnerTokenAudience string `mapstructure:"LEARNER_TOKEN_AUDIENCE"`
	// LearnerTokenTTL is the learner token lifetime (e.g. "720h").
	LearnerTokenTTL string `mapstructure:"LEARNER_TOKEN_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31) for recovery codes; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint. Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext gRPC to the collector even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OpenTelemetry service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// KafkaBrokers is a comma-separated list of Kafka brokers. When set, activity events are produced to ActivityKafkaTopic.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// ActivityKafkaTopic is the Kafka topic for learner activity events.
	ActivityKafkaTopic string `mapstructure:"ACTIVITY_KAFKA_TOPIC"`
	// Worker-only: KafkaGroupID is the consumer group of the activity worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// Worker-only: LokiURL is where the activity worker pushes events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// ContentReloadSchedule is a cron spec (e.g. "@every 5m") for reloading content from APP_ROOT. Empty disables reloads.
	ContentReloadSchedule string `mapstructure:"CONTENT_RELOAD_SCHEDULE"`
	// ShareTTL is how long shared playground snippets are kept (e.g. "24h").
	ShareTTL string `mapstructure:"SHARE_TTL"`
	// ShutdownTimeout bounds graceful HTTP shutdown (e.g. "10s").
	ShutdownTimeout string `mapstructure:"SHUTDOWN_TIMEOUT"`

	// LogLevel is the logrus level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "json" or "text".
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI or on a serverless platform). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("APP_ROOT", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SANDBOX_TIMEOUT", "2s")
	v.SetDefault("SANDBOX_MAX_SOURCE_BYTES", 64*1024)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("TRUSTED_PROXY_HOPS", 0)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("LEARNER_TOKEN_PRIVATE_KEY", "")
	v.SetDefault("LEARNER_TOKEN_PUBLIC_KEY", "")
	v.SetDefault("LEARNER_TOKEN_ISSUER", "jsacademy")
	v.SetDefault("LEARNER_TOKEN_AUDIENCE", "jsacademy-api")
	v.SetDefault("LEARNER_TOKEN_TTL", "720h") // 30d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "jsacademy")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ACTIVITY_KAFKA_TOPIC", "jsacademy-activity")
	v.SetDefault("KAFKA_GROUP_ID", "jsacademy-activity-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("CONTENT_RELOAD_SCHEDULE", "")
	v.SetDefault("SHARE_TTL", "24h")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and production requirements. Load calls it; tests building a Config by hand may too.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.SandboxMaxSourceBytes <= 0 {
		return errors.New("config: SANDBOX_MAX_SOURCE_BYTES must be positive")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	if c.TrustedProxyHops < 0 {
		return errors.New("config: TRUSTED_PROXY_HOPS must not be negative")
	}
	if (c.LearnerTokenPrivateKey == "") != (c.LearnerTokenPublicKey == "") {
		return errors.New("config: LEARNER_TOKEN_PRIVATE_KEY and LEARNER_TOKEN_PUBLIC_KEY must be set together")
	}
	if c.IsProduction() && c.LearnerTokenPrivateKey == "" {
		return errors.New("config: LEARNER_TOKEN_PRIVATE_KEY is required when APP_ENV=production")
	}
	return nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// SandboxTimeoutDuration parses SandboxTimeout. Returns 2s if unset or invalid.
func (c *Config) SandboxTimeoutDuration() time.Duration {
	return durationOr(c.SandboxTimeout, 2*time.Second)
}

// LearnerTokenTTLDuration parses LearnerTokenTTL. Returns 720h if unset or invalid.
func (c *Config) LearnerTokenTTLDuration() time.Duration {
	return durationOr(c.LearnerTokenTTL, 720*time.Hour)
}

// ShareTTLDuration parses ShareTTL. Returns 24h if unset or invalid.
func (c *Config) ShareTTLDuration() time.Duration {
	return durationOr(c.ShareTTL, 24*time.Hour)
}

// ShutdownTimeoutDuration parses ShutdownTimeout. Returns 10s if unset or invalid.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return durationOr(c.ShutdownTimeout, 10*time.Second)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the activity producer is enabled (non-empty list).
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// CORSOrigins returns the allowed CORS origins from the comma-separated config.
func (c *Config) CORSOrigins() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}
