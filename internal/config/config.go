// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type GatewayConfig struct {
	BaseURL string `yaml:"base_url"`
	// Platform-level credentials, used for club subscription billing when a
	// club has no gateway credentials of its own. Loaded from environment.
	PlatformAccessToken string `yaml:"-"`
}

type EventsConfig struct {
	Exchange string `yaml:"exchange"`
	// Broker URL; empty disables outbound events. Loaded from environment.
	URL string `yaml:"-"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Events   EventsConfig   `yaml:"events"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.Gateway.PlatformAccessToken = os.Getenv("GATEWAY_PLATFORM_ACCESS_TOKEN")
	cfg.Events.URL = os.Getenv("EVENTS_BROKER_URL")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}
	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Filename == "" {
		return fmt.Errorf("database filename is required for sqlite")
	}
	return nil
}
