package config

import (
	"testing"
)

func TestConfig_Defaults(t *testing.T) {
	keys := []string{
		"SCORE_BIND",
		"SCORE_ALLOW_PUBLIC_HTTP",
		"SCORE_MAX_SEQUENCE_BITS",
		"SUITE_ALPHA",
		"SUITE_TEMPLATE_LENGTH",
		"SUITE_TEMPLATE_BLOCKS",
		"SUITE_PARALLELISM",
		"METRICS_BIND",
		"METRICS_ENABLED",
		"ENVIRONMENT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Score.Bind != defaultScoreBind {
		t.Fatalf("Score.Bind default = %s, want %s", cfg.Score.Bind, defaultScoreBind)
	}
	if cfg.Score.MaxSequenceBits != defaultMaxSequenceBits {
		t.Fatalf("Score.MaxSequenceBits default = %d, want %d", cfg.Score.MaxSequenceBits, defaultMaxSequenceBits)
	}
	if cfg.Score.RateLimitRPS != defaultRateLimitRPS || cfg.Score.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("rate limit defaults = (%d,%d), want (%d,%d)",
			cfg.Score.RateLimitRPS, cfg.Score.RateLimitBurst, defaultRateLimitRPS, defaultRateLimitBurst)
	}
	if cfg.Suite.Alpha != defaultAlpha {
		t.Fatalf("Suite.Alpha default = %g, want %g", cfg.Suite.Alpha, defaultAlpha)
	}
	if cfg.Suite.TemplateLength != defaultTemplateLength || cfg.Suite.TemplateBlocks != defaultTemplateBlocks {
		t.Fatalf("template defaults = (%d,%d), want (%d,%d)",
			cfg.Suite.TemplateLength, cfg.Suite.TemplateBlocks, defaultTemplateLength, defaultTemplateBlocks)
	}
	if cfg.Suite.Parallelism != 0 {
		t.Fatalf("Suite.Parallelism default = %d, want 0", cfg.Suite.Parallelism)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("Metrics.Enabled default = false, want true")
	}
	if cfg.Environment != EnvironmentDevelopment {
		t.Fatalf("Environment default = %s, want %s", cfg.Environment, EnvironmentDevelopment)
	}
}

func TestConfig_FromEnv(t *testing.T) {
	t.Setenv("SCORE_BIND", "127.0.0.1:7070")
	t.Setenv("SCORE_ALLOW_PUBLIC_HTTP", "true")
	t.Setenv("SCORE_MAX_SEQUENCE_BITS", "65536")
	t.Setenv("SCORE_RATE_LIMIT_RPS", "50")
	t.Setenv("SCORE_RATE_LIMIT_BURST", "100")
	t.Setenv("SUITE_ALPHA", "0.05")
	t.Setenv("SUITE_TEMPLATE_LENGTH", "10")
	t.Setenv("SUITE_TEMPLATE_BLOCKS", "4")
	t.Setenv("SUITE_PARALLELISM", "2")
	t.Setenv("METRICS_BIND", "127.0.0.1:9100")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Score.Bind != "127.0.0.1:7070" {
		t.Fatalf("Score.Bind = %s, want 127.0.0.1:7070", cfg.Score.Bind)
	}
	if !cfg.Score.AllowPublic {
		t.Fatal("Score.AllowPublic = false, want true")
	}
	if cfg.Score.MaxSequenceBits != 65536 {
		t.Fatalf("Score.MaxSequenceBits = %d, want 65536", cfg.Score.MaxSequenceBits)
	}
	if cfg.Score.RateLimitRPS != 50 || cfg.Score.RateLimitBurst != 100 {
		t.Fatalf("rate limits = (%d,%d), want (50,100)", cfg.Score.RateLimitRPS, cfg.Score.RateLimitBurst)
	}
	if cfg.Suite.Alpha != 0.05 {
		t.Fatalf("Suite.Alpha = %g, want 0.05", cfg.Suite.Alpha)
	}
	if cfg.Suite.TemplateLength != 10 || cfg.Suite.TemplateBlocks != 4 {
		t.Fatalf("template params = (%d,%d), want (10,4)", cfg.Suite.TemplateLength, cfg.Suite.TemplateBlocks)
	}
	if cfg.Suite.Parallelism != 2 {
		t.Fatalf("Suite.Parallelism = %d, want 2", cfg.Suite.Parallelism)
	}
	if cfg.Metrics.Bind != "127.0.0.1:9100" {
		t.Fatalf("Metrics.Bind = %s, want 127.0.0.1:9100", cfg.Metrics.Bind)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("Metrics.Enabled = true, want false")
	}
	if cfg.Environment != EnvironmentProduction {
		t.Fatalf("Environment = %s, want %s", cfg.Environment, EnvironmentProduction)
	}
}

func TestConfig_TemplateLengthClamped(t *testing.T) {
	t.Setenv("SUITE_TEMPLATE_LENGTH", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Suite.TemplateLength != minTemplateLength {
		t.Fatalf("TemplateLength = %d, want clamped to %d", cfg.Suite.TemplateLength, minTemplateLength)
	}

	t.Setenv("SUITE_TEMPLATE_LENGTH", "16")

	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Suite.TemplateLength != maxTemplateLength {
		t.Fatalf("TemplateLength = %d, want clamped to %d", cfg.Suite.TemplateLength, maxTemplateLength)
	}
}

func TestConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SCORE_MAX_SEQUENCE_BITS", "not-a-number")
	t.Setenv("SCORE_RATE_LIMIT_RPS", "-5")
	t.Setenv("SUITE_ALPHA", "1.5")
	t.Setenv("METRICS_ENABLED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Score.MaxSequenceBits != defaultMaxSequenceBits {
		t.Fatalf("MaxSequenceBits = %d, want fallback %d", cfg.Score.MaxSequenceBits, defaultMaxSequenceBits)
	}
	if cfg.Score.RateLimitRPS != defaultRateLimitRPS {
		t.Fatalf("RateLimitRPS = %d, want fallback %d", cfg.Score.RateLimitRPS, defaultRateLimitRPS)
	}
	if cfg.Suite.Alpha != defaultAlpha {
		t.Fatalf("Alpha = %g, want fallback %g", cfg.Suite.Alpha, defaultAlpha)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("Metrics.Enabled = false, want fallback true")
	}
}

func TestConfig_InvalidEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestConfig_InlineCommentsStripped(t *testing.T) {
	t.Setenv("SCORE_BIND", "127.0.0.1:7071 # bind address")
	t.Setenv("SCORE_RATE_LIMIT_RPS", "20 # requests per second")
	t.Setenv("SUITE_ALPHA", "0.02 # significance level")
	t.Setenv("METRICS_ENABLED", "false # disable for tests")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Score.Bind != "127.0.0.1:7071" {
		t.Fatalf("Score.Bind = %s, want 127.0.0.1:7071", cfg.Score.Bind)
	}
	if cfg.Score.RateLimitRPS != 20 {
		t.Fatalf("RateLimitRPS = %d, want 20", cfg.Score.RateLimitRPS)
	}
	if cfg.Suite.Alpha != 0.02 {
		t.Fatalf("Alpha = %g, want 0.02", cfg.Suite.Alpha)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("Metrics.Enabled = true, want false")
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Config{
		Score:       Score{Bind: "127.0.0.1:9696"},
		Suite:       Suite{Alpha: 0.01},
		Environment: EnvironmentDevelopment,
	}

	got := cfg.String()
	want := "Config{Environment=dev, Score.Bind=127.0.0.1:9696, Suite.Alpha=0.01}"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
