package config

import (
	"os"
	"path/filepath"
	"testing"

	"villamar/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
app:
  timezone: "Asia/Manila"
auth:
  jwt_secret: "${TEST_JWT_SECRET}"
database:
  path: "test.db"
cottages:
  - id: rock
    name: "Rock Cottage"
    max_capacity: 3
    price_per_guest: 220
    is_active: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	t.Setenv("TEST_JWT_SECRET", "secret-from-env")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Auth.JWTSecret != "secret-from-env" {
		t.Errorf("expected env-expanded jwt secret, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.App.Timezone != "Asia/Manila" {
		t.Errorf("expected timezone Asia/Manila, got %s", cfg.App.Timezone)
	}
	if len(cfg.Cottages) != 1 || cfg.Cottages[0].ID != "rock" {
		t.Errorf("expected 1 cottage with id rock")
	}
	if cfg.Cottages[0].MaxCapacity != 3 {
		t.Errorf("expected max_capacity 3, got %d", cfg.Cottages[0].MaxCapacity)
	}

	// Defaults kick in for everything the file omits.
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Auth.CookieName != "token" {
		t.Errorf("expected default cookie name token, got %s", cfg.Auth.CookieName)
	}
	if cfg.Uploads.PublicPath != "/uploads/" {
		t.Errorf("expected default public path /uploads/, got %s", cfg.Uploads.PublicPath)
	}
	if cfg.RateLimit.UserRequests != models.RateLimitRequests {
		t.Errorf("expected default user request limit, got %d", cfg.RateLimit.UserRequests)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		return Config{
			App:      AppConfig{Timezone: "UTC"},
			Auth:     AuthConfig{JWTSecret: "secret"},
			Database: DatabaseConfig{Path: "reservations.db"},
			Cottages: []models.Cottage{
				{ID: "rock", Name: "Rock Cottage", MaxCapacity: 3, PricePerGuest: 220},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"sweeper hour too large", func(c *Config) { c.Sweeper.Hour = 24 }, true},
		{"sweeper hour negative", func(c *Config) { c.Sweeper.Hour = -1 }, true},
		{"bad timezone", func(c *Config) { c.App.Timezone = "Mars/Olympus" }, true},
		{"empty cottage id", func(c *Config) { c.Cottages[0].ID = "" }, true},
		{"zero capacity", func(c *Config) { c.Cottages[0].MaxCapacity = 0 }, true},
		{"negative price", func(c *Config) { c.Cottages[0].PricePerGuest = -1 }, true},
		{"duplicate cottage ids", func(c *Config) {
			c.Cottages = append(c.Cottages, c.Cottages[0])
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Config{App: AppConfig{Timezone: "Asia/Manila"}}
	if got := cfg.Location().String(); got != "Asia/Manila" {
		t.Errorf("expected Asia/Manila, got %s", got)
	}

	var zero Config
	if got := zero.Location().String(); got != "UTC" {
		t.Errorf("expected UTC fallback, got %s", got)
	}
}
