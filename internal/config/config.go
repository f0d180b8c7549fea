// Package config loads service settings from an optional YAML file, with
// environment variables (and .env) taking precedence over it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	FetchModeColly  = "colly"
	FetchModePolite = "polite"
)

const (
	DefaultBaseURL   = "https://www.cwjobs.co.uk"
	DefaultLocation  = "in-south-east"
	DefaultSelector  = "span.at-facet-header-total-results"
	DefaultUserAgent = "Mozilla/5.0 (compatible; job-site-stats/1.0)"
	DefaultPort      = "8080"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Target site
	BaseURL       string `yaml:"base_url"`
	Location      string `yaml:"location"`
	CountSelector string `yaml:"count_selector"`

	// Fetching
	UserAgent     string        `yaml:"user_agent"`
	FetchMode     string        `yaml:"fetch_mode"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	FetchAttempts int           `yaml:"fetch_attempts"`

	// History (optional)
	DatabaseURL      string        `yaml:"database_url"`
	HistoryRetention time.Duration `yaml:"history_retention"`

	StaticDir string `yaml:"static_dir"`
}

// Load reads .env (if present), then the YAML file at path (if present), then
// environment overrides. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using env and defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.BaseURL, "SITE_BASE_URL")
	setString(&c.Location, "SITE_LOCATION")
	setString(&c.CountSelector, "COUNT_SELECTOR")
	setString(&c.UserAgent, "USER_AGENT")
	setString(&c.FetchMode, "FETCH_MODE")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.StaticDir, "STATIC_DIR")

	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
		}
		c.FetchTimeout = d
	}
	if v := os.Getenv("FETCH_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FETCH_ATTEMPTS: %w", err)
		}
		c.FetchAttempts = n
	}
	if v := os.Getenv("HISTORY_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HISTORY_RETENTION: %w", err)
		}
		c.HistoryRetention = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Location == "" {
		c.Location = DefaultLocation
	}
	if c.CountSelector == "" {
		c.CountSelector = DefaultSelector
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.FetchMode == "" {
		c.FetchMode = FetchModeColly
	}
	// One attempt and no timeout unless configured otherwise.
	if c.FetchAttempts <= 0 {
		c.FetchAttempts = 1
	}
	if c.HistoryRetention <= 0 {
		c.HistoryRetention = 30 * 24 * time.Hour
	}
	if c.StaticDir == "" {
		c.StaticDir = "web"
	}
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.FetchMode {
	case FetchModeColly, FetchModePolite:
	default:
		return fmt.Errorf("invalid fetch mode %q (want %q or %q)", c.FetchMode, FetchModeColly, FetchModePolite)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("invalid base url %q: scheme must be http or https", c.BaseURL)
	}
	if c.FetchTimeout < 0 {
		return errors.New("fetch timeout must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

func (c *Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
