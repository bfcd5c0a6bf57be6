package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the webhook server settings. Values come from an
// optional YAML file, then environment variables, then command-line
// flags applied by the caller.
type Config struct {
	Port          int           `yaml:"port"`
	WebhookSecret string        `yaml:"webhook_secret"`
	LogLevel      string        `yaml:"log_level"`
	DedupWindow   time.Duration `yaml:"dedup_window"`
	// MaxTextBytes bounds each text field of a broadcast event.
	MaxTextBytes int `yaml:"max_text_bytes"`
}

func Default() Config {
	return Config{
		Port:         8080,
		LogLevel:     "info",
		DedupWindow:  time.Hour,
		MaxTextBytes: 64 * 1024,
	}
}

// Load reads path when it is non-empty and applies GH_DISPATCH_*
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("GH_DISPATCH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("GH_DISPATCH_PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("GH_DISPATCH_WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("GH_DISPATCH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DedupWindow < 0 {
		return fmt.Errorf("dedup_window must not be negative")
	}
	if c.MaxTextBytes < 0 {
		return fmt.Errorf("max_text_bytes must not be negative")
	}
	return nil
}

// HasSecret reports whether webhook signatures will be verified.
func (c Config) HasSecret() bool {
	return strings.TrimSpace(c.WebhookSecret) != ""
}
