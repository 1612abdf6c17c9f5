package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// JWTConfig holds JWT signing configuration.
type JWTConfig struct {
	Secret      string        `yaml:"secret"`
	UserExpiry  time.Duration `yaml:"user-expiry"`
	AdminExpiry time.Duration `yaml:"admin-expiry"`
}

// GatewayConfig holds NOWPayments gateway configuration.
type GatewayConfig struct {
	APIBaseURL  string `yaml:"api-base-url"`
	APIKey      string `yaml:"api-key"`
	IPNSecret   string `yaml:"ipn-secret"`
	CallbackURL string `yaml:"callback-url"`
}

// HubConfig holds the external authorization store (hub) configuration.
// When URL is empty, mirror sync and catalog sync are disabled.
type HubConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service-key"`
}

// LogConfig holds file logging configuration.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
	Level      string `yaml:"level"`
}

// Config is the root application configuration.
type Config struct {
	Listen   string        `yaml:"listen"`
	Database string        `yaml:"database"`
	Redis    string        `yaml:"redis"`
	JWT      JWTConfig     `yaml:"jwt"`
	Gateway  GatewayConfig `yaml:"gateway"`
	Hub      HubConfig     `yaml:"hub"`
	Log      LogConfig     `yaml:"log"`
}

// DefaultConfigPath is used when no path is supplied.
const DefaultConfigPath = "config.yaml"

// ResolveConfigPath returns the effective config path, honoring the
// TOKENDESK_CONFIG environment variable.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return filepath.Clean(trimmed)
	}
	if env := strings.TrimSpace(os.Getenv("TOKENDESK_CONFIG")); env != "" {
		return filepath.Clean(env)
	}
	return DefaultConfigPath
}

// Load reads the configuration file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Listen: ":8317",
		JWT: JWTConfig{
			UserExpiry:  24 * time.Hour,
			AdminExpiry: 8 * time.Hour,
		},
		Gateway: GatewayConfig{
			APIBaseURL: "https://api.nowpayments.io/v1",
		},
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Level:      "info",
		},
	}

	data, errRead := os.ReadFile(path)
	if errRead != nil {
		if !os.IsNotExist(errRead) {
			return nil, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	} else if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}

	applyEnvOverrides(cfg)

	if strings.TrimSpace(cfg.Database) == "" {
		return nil, fmt.Errorf("config: database dsn is required")
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, fmt.Errorf("config: jwt secret is required")
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override file values.
func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"TOKENDESK_LISTEN":       &cfg.Listen,
		"TOKENDESK_DATABASE":     &cfg.Database,
		"TOKENDESK_REDIS":        &cfg.Redis,
		"TOKENDESK_JWT_SECRET":   &cfg.JWT.Secret,
		"NOWPAYMENTS_API_KEY":    &cfg.Gateway.APIKey,
		"NOWPAYMENTS_IPN":        &cfg.Gateway.IPNSecret,
		"HUB_API_URL":            &cfg.Hub.URL,
		"HUB_API_SERVICE_KEY":    &cfg.Hub.ServiceKey,
		"TOKENDESK_IPN_CALLBACK": &cfg.Gateway.CallbackURL,
	}
	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				*target = trimmed
			}
		}
	}
}
