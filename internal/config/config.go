// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort                = 8080
	defaultShutdownSeconds     = 30
	defaultMaxRecurrenceDays   = 730
	defaultSessionTTLHours     = 24 * 14
	defaultSessionCleanupCron  = "*/30 * * * *"
	defaultLoginMaxAttempts    = 5
	defaultLoginLockoutMinutes = 15
	defaultLoginMaxIPPerHour   = 50
	defaultPhoneRegion         = "US"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

// ScheduleConfig controls recurring event generation.
type ScheduleConfig struct {
	// MaxRecurrenceDays caps how far past the parent date a series may run.
	MaxRecurrenceDays int `yaml:"max_recurrence_days"`
	// BiweeklyIntervalMultiplier makes biweekly series step 14*interval days
	// instead of a fixed 14.
	BiweeklyIntervalMultiplier bool `yaml:"biweekly_interval_multiplier"`
}

type SessionConfig struct {
	TTLHours    int    `yaml:"ttl_hours"`
	CleanupCron string `yaml:"cleanup_cron"`
}

type LoginConfig struct {
	MaxAttempts    int `yaml:"max_attempts"`
	LockoutMinutes int `yaml:"lockout_minutes"`
	MaxIPPerHour   int `yaml:"max_ip_per_hour"`
}

type Config struct {
	App struct {
		Name                   string `yaml:"name"`
		Environment            string `yaml:"environment"`
		Port                   int    `yaml:"port"`
		BaseURL                string `yaml:"base_url"`
		ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
		TrustProxy             bool   `yaml:"trust_proxy"`
		PhoneRegion            string `yaml:"phone_region"`
		SecretKey              string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sessions SessionConfig  `yaml:"sessions"`
	Login    LoginConfig    `yaml:"login"`
}

// Load reads the .env file next to configPath (if any) and the YAML config,
// fills defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML config bytes and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = defaultPort
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.ShutdownTimeoutSeconds == 0 {
		c.App.ShutdownTimeoutSeconds = defaultShutdownSeconds
	}
	if c.App.PhoneRegion == "" {
		c.App.PhoneRegion = defaultPhoneRegion
	}
	if c.Schedule.MaxRecurrenceDays == 0 {
		c.Schedule.MaxRecurrenceDays = defaultMaxRecurrenceDays
	}
	if c.Sessions.TTLHours == 0 {
		c.Sessions.TTLHours = defaultSessionTTLHours
	}
	if strings.TrimSpace(c.Sessions.CleanupCron) == "" {
		c.Sessions.CleanupCron = defaultSessionCleanupCron
	}
	if c.Login.MaxAttempts == 0 {
		c.Login.MaxAttempts = defaultLoginMaxAttempts
	}
	if c.Login.LockoutMinutes == 0 {
		c.Login.LockoutMinutes = defaultLoginLockoutMinutes
	}
	if c.Login.MaxIPPerHour == 0 {
		c.Login.MaxIPPerHour = defaultLoginMaxIPPerHour
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app port must be between 1 and 65535")
	}
	if c.App.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("shutdown timeout must not be negative")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Schedule.MaxRecurrenceDays < 0 {
		return fmt.Errorf("schedule max_recurrence_days must be positive")
	}
	if c.Sessions.TTLHours < 0 {
		return fmt.Errorf("sessions ttl_hours must be positive")
	}
	if _, err := cron.ParseStandard(c.Sessions.CleanupCron); err != nil {
		return fmt.Errorf("invalid sessions cleanup_cron %q: %w", c.Sessions.CleanupCron, err)
	}
	if c.Login.MaxAttempts < 0 || c.Login.LockoutMinutes < 0 || c.Login.MaxIPPerHour < 0 {
		return fmt.Errorf("login limits must be positive")
	}

	return nil
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.App.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLHours) * time.Hour
}

func (c *Config) LoginLockout() time.Duration {
	return time.Duration(c.Login.LockoutMinutes) * time.Minute
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
