// Package config provides configuration management for the redaction pipeline
// and the image resolution service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Notion    NotionConfig    `yaml:"notion"`
	Redaction RedactionConfig `yaml:"redaction"`
	Mappings  MappingsConfig  `yaml:"mappings"`
	Cache     CacheConfig     `yaml:"cache"`
	Generator GeneratorConfig `yaml:"generator"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// NotionConfig contains content source settings. The token can also come
// from the NOTION_TOKEN environment variable, which takes precedence.
type NotionConfig struct {
	Token   string `yaml:"token"`
	Version string `yaml:"version"`
}

// RedactionConfig contains detection-rule settings
type RedactionConfig struct {
	Entropy EntropyConfig `yaml:"entropy"`
}

// EntropyConfig contains the optional entropy verifier settings
type EntropyConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	MinLength int     `yaml:"min_length"`
	MaxLength int     `yaml:"max_length"`
}

// MappingsConfig contains placeholder-mapping storage settings
type MappingsConfig struct {
	Type  string      `yaml:"type"` // "file", "redis", or "memory"
	Dir   string      `yaml:"dir"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"` //#nosec G117 -- Password field is intentional for Redis auth config
	DB       int    `yaml:"db"`
}

// CacheConfig contains durable image cache settings
type CacheConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

// GeneratorConfig contains post output settings
type GeneratorConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// WebhookConfig contains signed-delivery settings. The secret can also come
// from the WEBHOOK_SECRET environment variable, which takes precedence.
type WebhookConfig struct {
	Secret  string        `yaml:"secret"`
	MaxSkew time.Duration `yaml:"max_skew"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string      `yaml:"level"`
	Audit AuditConfig `yaml:"audit"`
}

// AuditConfig contains audit trail settings
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"`
	Format  string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: ":8080",
		},
		Notion: NotionConfig{
			Version: "2022-06-28",
		},
		Redaction: RedactionConfig{
			Entropy: EntropyConfig{
				Enabled:   false,
				Threshold: 4.5,
				MinLength: 16,
				MaxLength: 128,
			},
		},
		Mappings: MappingsConfig{
			Type: "file",
			Dir:  "./data/mappings",
			Redis: RedisConfig{
				Address: "localhost:6379",
				DB:      0,
			},
		},
		Cache: CacheConfig{
			Dir:     "./data/cache",
			BaseURL: "/images/",
		},
		Generator: GeneratorConfig{
			OutputDir: "./posts",
		},
		Webhook: WebhookConfig{
			MaxSkew: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
			Audit: AuditConfig{
				Enabled: true,
				Output:  "stdout",
				Format:  "json",
			},
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}

// Load loads the configuration from file or environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Check for config file path in environment or use default
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Sanitize and validate path to prevent path traversal
	configPath = sanitizeConfigPath(configPath)

	// Try to load config file
	data, err := os.ReadFile(configPath) //#nosec G304 -- config path is sanitized above
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv lets secret-bearing settings come from the environment so they
// never have to live in the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("NOTION_TOKEN"); v != "" {
		cfg.Notion.Token = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Mappings.Redis.Password = v
	}
}

// sanitizeConfigPath cleans and validates a config file path
func sanitizeConfigPath(path string) string {
	// Clean the path to remove any . or .. components
	cleaned := filepath.Clean(path)

	// If path is absolute, use it as-is (operator explicitly set full path)
	// If relative, ensure it doesn't escape the current directory
	if !filepath.IsAbs(cleaned) {
		// Remove any leading ../ components for relative paths
		for len(cleaned) > 2 && cleaned[:3] == "../" {
			cleaned = cleaned[3:]
		}
		if cleaned == ".." {
			cleaned = "config.yaml"
		}
	}

	return cleaned
}
