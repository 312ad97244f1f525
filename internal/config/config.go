// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL        string        `env:"REDIS_URL,required"`
	BalanceCacheTTL time.Duration `env:"BALANCE_CACHE_TTL" envDefault:"30s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Gates. Hashes are Argon2id PHC strings; an empty hash disables the gate.
	SessionSecret   string        `env:"SESSION_SECRET,required"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	AccessCodeHash  string        `env:"ACCESS_CODE_HASH" envDefault:""`
	AdminSecretHash string        `env:"ADMIN_SECRET_HASH" envDefault:""`
	MaintenanceMode bool          `env:"MAINTENANCE_MODE" envDefault:"false"`
	GateRatePerMin  int           `env:"GATE_RATE_PER_MINUTE" envDefault:"10"`
	GateBurst       int           `env:"GATE_BURST" envDefault:"5"`

	// Generation providers
	GeminiAPIKey  string  `env:"GEMINI_API_KEY" envDefault:""`
	TextModel     string  `env:"TEXT_MODEL" envDefault:"gemini-1.5-flash"`
	ImageAPIURL   string  `env:"IMAGE_API_URL" envDefault:"https://api.openai.com"`
	ImageAPIKey   string  `env:"IMAGE_API_KEY" envDefault:""`
	ImageModel    string  `env:"IMAGE_MODEL" envDefault:"dall-e-3"`
	ProviderRPS   float64 `env:"PROVIDER_RPS" envDefault:"5"`
	ProviderBurst int     `env:"PROVIDER_BURST" envDefault:"10"`

	// Credit prices and per-user generation limits
	TextCreditCost          int64 `env:"TEXT_CREDIT_COST" envDefault:"1"`
	ImageCreditCost         int64 `env:"IMAGE_CREDIT_COST" envDefault:"5"`
	GenerationRatePerMinute int   `env:"GENERATION_RATE_PER_MINUTE" envDefault:"20"`
	GenerationBurst         int   `env:"GENERATION_BURST" envDefault:"5"`

	// Storefront
	ShopifyAPIVersion string `env:"SHOPIFY_API_VERSION" envDefault:"2024-07"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AccessWallEnabled reports whether visitors need the access code.
func (c *Config) AccessWallEnabled() bool {
	return c.AccessCodeHash != ""
}

// AdminEnabled reports whether the admin secret is configured.
func (c *Config) AdminEnabled() bool {
	return c.AdminSecretHash != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 bytes")
	}
	if c.TextCreditCost < 0 || c.ImageCreditCost < 0 {
		return errors.New("credit costs must not be negative")
	}
	if c.GenerationRatePerMinute < 0 || c.GenerationBurst < 0 {
		return errors.New("generation rate limit must not be negative")
	}
	if c.GateRatePerMin < 0 || c.GateBurst < 0 {
		return errors.New("gate rate limit must not be negative")
	}
	// A zero-capacity bucket would reject every request.
	if c.GenerationRatePerMinute > 0 && c.GenerationBurst < 1 {
		return errors.New("GENERATION_BURST must be at least 1 when GENERATION_RATE_PER_MINUTE is set")
	}
	if c.GateRatePerMin > 0 && c.GateBurst < 1 {
		return errors.New("GATE_BURST must be at least 1 when GATE_RATE_PER_MINUTE is set")
	}
	return nil
}

// Load reads an optional .env file, parses environment variables and
// returns a validated Config. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
