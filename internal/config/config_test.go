package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func validConfig() *Config {
	return &Config{
		Environment:    "development",
		JWTSecret:      "valid-secret-that-is-long-enough-for-testing",
		JWTIssuer:      "test-issuer",
		JWTAudience:    "test-audience",
		JWTExpiry:      time.Hour,
		StoreDriver:    "memory",
		LogFormat:      "text",
		ImportMaxBytes: 1 << 20,
	}
}

func TestLoad(t *testing.T) {
	for _, k := range []string{"JWT_SECRET", "JWT_ISS", "JWT_AUD", "JWT_EXPIRY", "STORE_DRIVER", "HTTP_ADDR", "IMPORT_MAX_BYTES"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.JWTSecret != DefaultJWTSecret {
		t.Errorf("Expected default JWT_SECRET, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "assetdb-api" {
		t.Errorf("Expected default JWT_ISS, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "assetdb-api" {
		t.Errorf("Expected default JWT_AUD, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("Expected default JWT_EXPIRY, got %v", cfg.JWTExpiry)
	}
	if cfg.StoreDriver != "memory" {
		t.Errorf("Expected default STORE_DRIVER, got %s", cfg.StoreDriver)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Expected default HTTP_ADDR, got %s", cfg.HTTPAddr)
	}
	if cfg.ImportMaxBytes != 20<<20 {
		t.Errorf("Expected default IMPORT_MAX_BYTES, got %d", cfg.ImportMaxBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate outside production: %v", err)
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("JWT_ISS", "test-issuer")
	t.Setenv("JWT_AUD", "test-audience")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/assetdb")
	t.Setenv("ENABLE_METRICS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.JWTSecret != "test-secret-key" {
		t.Errorf("Expected JWT_SECRET from env, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "test-issuer" {
		t.Errorf("Expected JWT_ISS from env, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "test-audience" {
		t.Errorf("Expected JWT_AUD from env, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 2*time.Hour {
		t.Errorf("Expected JWT_EXPIRY from env, got %v", cfg.JWTExpiry)
	}
	if cfg.StoreDriver != "postgres" || cfg.DatabaseURL == "" {
		t.Errorf("Expected postgres store from env, got %s %q", cfg.StoreDriver, cfg.DatabaseURL)
	}
	if !cfg.EnableMetrics {
		t.Error("Expected ENABLE_METRICS from env")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "soon")
	if _, err := Load(); err == nil {
		t.Error("Load() should fail on an unparsable JWT_EXPIRY")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid config", func(*Config) {}, false},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"secret too short", func(c *Config) { c.JWTSecret = "short" }, true},
		{"empty issuer", func(c *Config) { c.JWTIssuer = "" }, true},
		{"empty audience", func(c *Config) { c.JWTAudience = "" }, true},
		{"negative expiry", func(c *Config) { c.JWTExpiry = -time.Hour }, true},
		{"zero expiry", func(c *Config) { c.JWTExpiry = 0 }, true},
		{"expiry too short", func(c *Config) { c.JWTExpiry = 30 * time.Second }, true},
		{"expiry too long", func(c *Config) { c.JWTExpiry = 31 * 24 * time.Hour }, true},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = "postgres" }, true},
		{"postgres with dsn", func(c *Config) { c.StoreDriver = "postgres"; c.DatabaseURL = "postgres://x" }, false},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }, true},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"zero import limit", func(c *Config) { c.ImportMaxBytes = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-that-is-long-enough-for-testing")
	t.Setenv("JWT_EXPIRY", "1h")

	cfg, err := LoadAndValidate()
	if err != nil {
		t.Errorf("LoadAndValidate() failed with valid config: %v", err)
	}
	if cfg == nil {
		t.Error("LoadAndValidate() returned nil config with valid config")
	}

	t.Setenv("JWT_SECRET", "short")
	if _, err = LoadAndValidate(); err == nil {
		t.Error("LoadAndValidate() should fail with invalid config")
	}
}

func TestProductionSecretValidation(t *testing.T) {
	t.Setenv("ENVIRONMENT", Production)
	t.Setenv("JWT_SECRET", DefaultJWTSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Production validation should fail with default secret")
	}

	t.Setenv("JWT_SECRET", "proper-production-secret-that-is-long-enough")
	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Production validation should pass with proper secret: %v", err)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ASSETDB_TEST_ONLY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ASSETDB_TEST_ONLY", "")
	os.Unsetenv("ASSETDB_TEST_ONLY")

	n, err := LoadEnv(path, filepath.Join(dir, ".env.local"))
	if err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 file loaded, got %d", n)
	}
	if got := os.Getenv("ASSETDB_TEST_ONLY"); got != "from-file" {
		t.Errorf("Expected value from .env, got %q", got)
	}
}

func TestLogger(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"
	l := cfg.Logger()
	if l.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %s", l.GetLevel())
	}
	if _, ok := l.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("Expected JSON formatter, got %T", l.Formatter)
	}

	cfg.LogLevel = "loud"
	if got := cfg.Logger().GetLevel(); got != logrus.InfoLevel {
		t.Errorf("Expected fallback to info, got %s", got)
	}
}
