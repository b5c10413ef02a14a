package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrConfiguration marks a missing or invalid required setting. The process
// must not serve traffic when Load returns it.
var ErrConfiguration = errors.New("configuration error")

// Config holds all configuration for the application.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV"  envDefault:"development"`

	// Storage. Without DATABASE_URL users live in SQLite at SQLITE_PATH;
	// without REDIS_URL messages live in process memory.
	DatabaseURL      string        `env:"DATABASE_URL"`
	SQLitePath       string        `env:"SQLITE_PATH"       envDefault:"./data/chat.db"`
	RedisURL         string        `env:"REDIS_URL"`
	MessageRetention time.Duration `env:"MESSAGE_RETENTION" envDefault:"0s"`
	BlobBaseURL      string        `env:"BLOB_BASE_URL"     envDefault:"http://localhost:8080/files"`

	// Identity header set by the authenticating gateway, and the issuer
	// prefix used to build token identifiers from webhook user IDs.
	IdentityHeader string `env:"IDENTITY_HEADER" envDefault:"X-Identity-Token"`
	IdentityIssuer string `env:"IDENTITY_ISSUER"`

	WebhookSecret    string        `env:"WEBHOOK_SECRET"`
	WebhookTolerance time.Duration `env:"WEBHOOK_TOLERANCE" envDefault:"5m"`

	Generation GenerationConfig `envPrefix:"GENERATION_"`
	AI         AIConfig         `envPrefix:"AI_"`

	// Browser origins allowed by CORS and the websocket upgrade.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Rate limiting
	RateLimitWhitelist []string `env:"RATE_LIMIT_WHITELIST" envSeparator:","` // IPs or CIDRs exempt from rate limiting
}

// GenerationConfig selects and configures the text generation provider.
type GenerationConfig struct {
	Provider  string        `env:"PROVIDER"   envDefault:"anthropic"` // "anthropic" or "openai"
	APIKey    string        `env:"API_KEY"`
	Model     string        `env:"MODEL"`
	BaseURL   string        `env:"BASE_URL"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"60s"`
	MaxTokens int           `env:"MAX_TOKENS" envDefault:"1024"`
}

// AIConfig controls trigger recognition, the synthetic sender profile and
// the completion worker pool.
type AIConfig struct {
	TextTrigger  string `env:"TEXT_TRIGGER"  envDefault:"@gemini"`
	ImageTrigger string `env:"IMAGE_TRIGGER" envDefault:"@gemini-image"`
	DisplayName  string `env:"DISPLAY_NAME"  envDefault:"Gemini AI"`
	TextAvatar   string `env:"TEXT_AVATAR"   envDefault:"/gemini.png"`
	ImageAvatar  string `env:"IMAGE_AVATAR"  envDefault:"/gemini-image.png"`
	Workers      int    `env:"WORKERS"       envDefault:"4"`
	QueueSize    int    `env:"QUEUE_SIZE"    envDefault:"100"`
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// Missing secrets produce an error wrapping ErrConfiguration.
func Load() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	whitelist := cfg.RateLimitWhitelist[:0]
	for _, entry := range cfg.RateLimitWhitelist {
		if entry = strings.TrimSpace(entry); entry != "" {
			whitelist = append(whitelist, entry)
		}
	}
	cfg.RateLimitWhitelist = whitelist

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.WebhookSecret == "" {
		return fmt.Errorf("%w: WEBHOOK_SECRET is not set", ErrConfiguration)
	}
	if c.Generation.APIKey == "" {
		return fmt.Errorf("%w: GENERATION_API_KEY is not set", ErrConfiguration)
	}
	switch c.Generation.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("%w: unknown GENERATION_PROVIDER %q", ErrConfiguration, c.Generation.Provider)
	}
	if c.AI.TextTrigger == "" || c.AI.ImageTrigger == "" {
		return fmt.Errorf("%w: AI triggers must not be empty", ErrConfiguration)
	}
	if c.AI.Workers < 1 {
		c.AI.Workers = 1
	}

	// In production, require database and redis URLs
	if c.Env == "production" {
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required in production", ErrConfiguration)
		}
		if c.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL is required in production", ErrConfiguration)
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
