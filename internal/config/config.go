package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"villamar/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Google     GoogleConfig     `yaml:"google"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Exports    ExportConfig     `yaml:"exports"`
	Cottages   []models.Cottage `yaml:"cottages"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	CookieName string `yaml:"cookie_name"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type UploadsConfig struct {
	Dir        string `yaml:"dir"`
	PublicPath string `yaml:"public_path"`
}

type SweeperConfig struct {
	Enabled bool `yaml:"enabled"`
	Hour    int  `yaml:"hour"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type RateLimitConfig struct {
	RPS          float64 `yaml:"rps"`
	Burst        int     `yaml:"burst"`
	UserRequests int     `yaml:"user_requests"`
	UserWindow   int     `yaml:"user_window"`
}

type GoogleConfig struct {
	Enabled                   bool   `yaml:"enabled"`
	CredentialsFile           string `yaml:"credentials_file"`
	ReservationsSpreadsheetID string `yaml:"reservations_spreadsheet_id"`
}

type TelegramConfig struct {
	Enabled  bool    `yaml:"enabled"`
	BotToken string  `yaml:"bot_token"`
	ChatIDs  []int64 `yaml:"chat_ids"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env наличие не обязательно
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Environment variable substitution before parsing.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth jwt secret is required")
	}
	if c.Sweeper.Hour < 0 || c.Sweeper.Hour > 23 {
		return fmt.Errorf("sweeper hour must be 0..23, got %d", c.Sweeper.Hour)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid app timezone %q: %w", c.App.Timezone, err)
	}
	return ValidateCottages(c.Cottages)
}

func ValidateCottages(cottages []models.Cottage) error {
	seen := make(map[string]bool)
	for _, cottage := range cottages {
		if cottage.ID == "" {
			return fmt.Errorf("cottage '%s' has empty id", cottage.Name)
		}
		if seen[cottage.ID] {
			return fmt.Errorf("duplicate cottage id found: %s", cottage.ID)
		}
		if cottage.MaxCapacity <= 0 {
			return fmt.Errorf("cottage '%s' must have positive max_capacity", cottage.ID)
		}
		if cottage.PricePerGuest < 0 {
			return fmt.Errorf("cottage '%s' has negative price", cottage.ID)
		}
		seen[cottage.ID] = true
	}
	return nil
}

// Location resolves the configured reference timezone. Validate guarantees
// it parses; UTC is the fallback for a zero config.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "UTC"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "token"
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.PublicPath == "" {
		c.Uploads.PublicPath = "/uploads/"
	}
	if c.RateLimit.UserRequests == 0 {
		c.RateLimit.UserRequests = models.RateLimitRequests
	}
	if c.RateLimit.UserWindow == 0 {
		c.RateLimit.UserWindow = models.RateLimitWindow
	}
}
