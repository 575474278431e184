// Package config provides configuration management for the randomness-scorer
// application. Configuration is loaded from environment variables with
// sensible defaults.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
)

// Environment constants define the application runtime environments.
const (
	EnvironmentDevelopment = "dev"
	EnvironmentProduction  = "prod"

	defaultScoreBind         = "127.0.0.1:9696"
	defaultMetricsBind       = "127.0.0.1:8080"
	defaultMaxSequenceBits   = 8 * 1024 * 1024
	defaultRetryAfterSeconds = 1
	defaultRateLimitRPS      = 10
	defaultRateLimitBurst    = 10
	defaultAlpha             = 0.01
	defaultTemplateLength    = 9
	defaultTemplateBlocks    = 8
	minTemplateLength        = 2
	maxTemplateLength        = 10
)

// Score contains configuration for the HTTP scoring server.
type Score struct {
	Bind            string `json:"bind"`              // Bind address for the scoring server (e.g., "127.0.0.1:9696")
	AllowPublic     bool   `json:"allow_public"`      // Permit binding to non-loopback addresses
	MaxSequenceBits int    `json:"max_sequence_bits"` // Maximum accepted sequence length in bits
	RateLimitRPS    int    `json:"rate_limit_rps"`    // Rate limit: requests per second (default: 10)
	RateLimitBurst  int    `json:"rate_limit_burst"`  // Rate limit: burst allowance (default: 10)
	RetryAfterSec   int    `json:"retry_after_sec"`   // Retry-After hint for rate limited responses
}

// Suite contains configuration for the statistical test battery.
type Suite struct {
	Alpha          float64 `json:"alpha"`           // Significance level for pass/fail decisions
	TemplateLength int     `json:"template_length"` // Template length for the template matching tests (2-10)
	TemplateBlocks int     `json:"template_blocks"` // Block count for the template matching tests
	Parallelism    int     `json:"parallelism"`     // Concurrent tests after the gate (0 = one per CPU)
}

// Metrics contains Prometheus metrics server configuration.
type Metrics struct {
	Bind    string `json:"bind"`    // Bind address for metrics server (e.g., "127.0.0.1:8080")
	Enabled bool   `json:"enabled"` // Enable metrics server
}

// Config holds the complete application configuration.
type Config struct {
	Score       Score   `json:"score"`       // Scoring server configuration
	Suite       Suite   `json:"suite"`       // Test battery configuration
	Metrics     Metrics `json:"metrics"`     // Metrics server configuration
	Environment string  `json:"environment"` // Runtime environment ("dev" or "prod")
}

// Load reads configuration from environment variables and returns a validated Config.
// It applies defaults first, then overrides with environment variables.
// Returns an error if the required configuration is missing or invalid.
func Load() (Config, error) {
	configuration := Config{
		Score: Score{
			Bind:            defaultScoreBind,
			MaxSequenceBits: defaultMaxSequenceBits,
			RateLimitRPS:    defaultRateLimitRPS,
			RateLimitBurst:  defaultRateLimitBurst,
			RetryAfterSec:   defaultRetryAfterSeconds,
		},
		Suite: Suite{
			Alpha:          defaultAlpha,
			TemplateLength: defaultTemplateLength,
			TemplateBlocks: defaultTemplateBlocks,
		},
		Metrics: Metrics{
			Bind:    defaultMetricsBind,
			Enabled: true,
		},
		Environment: EnvironmentDevelopment,
	}

	applyScoreEnvVars(&configuration)
	applySuiteEnvVars(&configuration)
	applyMetricsEnvVars(&configuration)
	if err := applyEnvironmentEnvVars(&configuration); err != nil {
		return configuration, err
	}

	if err := validate(&configuration); err != nil {
		return configuration, err
	}

	return configuration, nil
}

// applyScoreEnvVars reads scoring server environment variables.
func applyScoreEnvVars(configuration *Config) {
	configuration.Score.Bind = GetEnvDefault("SCORE_BIND", configuration.Score.Bind)
	configuration.Score.AllowPublic = ParseBoolEnv("SCORE_ALLOW_PUBLIC_HTTP", configuration.Score.AllowPublic)
	configuration.Score.MaxSequenceBits = ParsePositiveEnvInt("SCORE_MAX_SEQUENCE_BITS", configuration.Score.MaxSequenceBits)
	configuration.Score.RateLimitRPS = ParsePositiveEnvInt("SCORE_RATE_LIMIT_RPS", configuration.Score.RateLimitRPS)
	configuration.Score.RateLimitBurst = ParsePositiveEnvInt("SCORE_RATE_LIMIT_BURST", configuration.Score.RateLimitBurst)
	configuration.Score.RetryAfterSec = ParsePositiveEnvInt("SCORE_RETRY_AFTER_SEC", configuration.Score.RetryAfterSec)
}

// applySuiteEnvVars reads test battery environment variables. The template
// length is clamped to the supported range [2, 10] with a warning log.
func applySuiteEnvVars(configuration *Config) {
	configuration.Suite.Alpha = ParseUnitFloatEnv("SUITE_ALPHA", configuration.Suite.Alpha)
	configuration.Suite.TemplateLength = ParsePositiveEnvInt("SUITE_TEMPLATE_LENGTH", configuration.Suite.TemplateLength)
	configuration.Suite.TemplateBlocks = ParsePositiveEnvInt("SUITE_TEMPLATE_BLOCKS", configuration.Suite.TemplateBlocks)
	configuration.Suite.Parallelism = ParsePositiveEnvInt("SUITE_PARALLELISM", configuration.Suite.Parallelism)

	if configuration.Suite.TemplateLength < minTemplateLength {
		log.Printf("config: SUITE_TEMPLATE_LENGTH (%d) below minimum (%d), clamping to min",
			configuration.Suite.TemplateLength, minTemplateLength)
		configuration.Suite.TemplateLength = minTemplateLength
	} else if configuration.Suite.TemplateLength > maxTemplateLength {
		log.Printf("config: SUITE_TEMPLATE_LENGTH (%d) above maximum (%d), clamping to max",
			configuration.Suite.TemplateLength, maxTemplateLength)
		configuration.Suite.TemplateLength = maxTemplateLength
	}
}

// applyMetricsEnvVars reads Prometheus metrics server environment variables.
func applyMetricsEnvVars(configuration *Config) {
	configuration.Metrics.Bind = GetEnvDefault("METRICS_BIND", configuration.Metrics.Bind)
	configuration.Metrics.Enabled = ParseBoolEnv("METRICS_ENABLED", configuration.Metrics.Enabled)
}

// applyEnvironmentEnvVars normalizes ENVIRONMENT into "dev" or "prod".
// Valid inputs are "dev"/"development" and "prod"/"production"; other values error out.
func applyEnvironmentEnvVars(configuration *Config) error {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		env := strings.ToLower(strings.TrimSpace(v))

		switch env {
		case "dev", "development":
			configuration.Environment = EnvironmentDevelopment
		case "prod", "production":
			configuration.Environment = EnvironmentProduction
		default:
			return errors.New("config: ENVIRONMENT must be 'dev' or 'prod'")
		}
	}

	return nil
}

// validate checks that required configuration fields are present and valid.
// Returns an error if any validation fails.
func validate(configuration *Config) error {
	if configuration.Score.Bind == "" {
		return errors.New("config: SCORE_BIND is required")
	}

	if configuration.Suite.Alpha <= 0 || configuration.Suite.Alpha >= 1 {
		return errors.New("config: SUITE_ALPHA must be strictly between 0 and 1")
	}

	if configuration.Environment != EnvironmentDevelopment && configuration.Environment != EnvironmentProduction {
		return errors.New("config: environment must be 'dev' or 'prod'")
	}

	if configuration.Score.AllowPublic && configuration.IsProduction() {
		log.Printf("WARNING: scoring server bound to a public address in production mode")
	}

	return nil
}

// IsProduction returns true if the application is running in production mode.
func (cfg *Config) IsProduction() bool {
	return cfg.Environment == EnvironmentProduction
}

// IsDevelopment returns true if the application is running in development mode.
func (cfg *Config) IsDevelopment() bool {
	return cfg.Environment == EnvironmentDevelopment
}

// String returns a human-readable representation of the configuration.
func (cfg *Config) String() string {
	return "Config{" +
		"Environment=" + cfg.Environment +
		", Score.Bind=" + cfg.Score.Bind +
		", Suite.Alpha=" + strconv.FormatFloat(cfg.Suite.Alpha, 'g', -1, 64) +
		"}"
}

// cleanEnvValue removes inline comments and trims whitespace from environment variable values.
// This handles systemd EnvironmentFile format where inline comments are included in the value.
// Example: "127.0.0.1:8080 # bind address" becomes "127.0.0.1:8080"
func cleanEnvValue(value string) string {
	cleaned := strings.TrimSpace(value)
	// Strip inline comments after the value
	if idx := strings.Index(cleaned, "#"); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}
	return cleaned
}

// GetEnvDefault retrieves an environment variable or returns a fallback value.
// Empty or whitespace-only values are treated as unset.
// Inline comments (e.g., "value # comment") are stripped.
func GetEnvDefault(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		cleaned := cleanEnvValue(value)
		if cleaned != "" {
			return cleaned
		}
	}
	return fallback
}

// ParsePositiveEnvInt reads an integer environment variable with validation.
// Returns the fallback if the variable is unset, invalid, or non-positive.
// Invalid or non-positive values are logged before falling back.
// Inline comments (e.g., "512 # comment") are stripped.
func ParsePositiveEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	cleaned := cleanEnvValue(value)
	if cleaned == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(cleaned)
	if err != nil {
		log.Printf("config: %s invalid (%q), using fallback %d", key, value, fallback)
		return fallback
	}
	if parsed <= 0 {
		log.Printf("config: %s non-positive (%d), using fallback %d", key, parsed, fallback)
		return fallback
	}
	return parsed
}

// ParseUnitFloatEnv reads a float environment variable constrained to the
// open interval (0, 1). Returns the fallback if the variable is unset,
// invalid, or out of range. Inline comments (e.g., "0.01 # alpha") are
// stripped.
func ParseUnitFloatEnv(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	cleaned := cleanEnvValue(value)
	if cleaned == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		log.Printf("config: %s invalid (%q), using fallback %g", key, value, fallback)
		return fallback
	}
	if parsed <= 0 || parsed >= 1 {
		log.Printf("config: %s out of range (%g), using fallback %g", key, parsed, fallback)
		return fallback
	}
	return parsed
}

// ParseBoolEnv interprets typical boolean environment values (true/false, 1/0, yes/no).
// Inline comments (e.g., "true # enable feature") are stripped.
func ParseBoolEnv(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	cleaned := cleanEnvValue(value)
	if cleaned == "" {
		return fallback
	}
	trimmed := strings.ToLower(cleaned)
	switch trimmed {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		log.Printf("config: %s has unrecognised boolean value %q, using fallback %v", key, value, fallback)
		return fallback
	}
}
