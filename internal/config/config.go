// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port        string      `yaml:"port"`
	FrontendURL string      `yaml:"frontend_url"`
	DBPath      string      `yaml:"db_path"`
	Debug       bool        `yaml:"debug"`
	Atlas       AtlasConfig `yaml:"atlas"`
	Poll        PollConfig  `yaml:"poll"`
}

// AtlasConfig describes how to reach the Atlas backend.
type AtlasConfig struct {
	APIURL         string        `yaml:"api_url"`
	WSURL          string        `yaml:"ws_url"` // derived from APIURL when empty
	TokenFile      string        `yaml:"token_file"`
	Token          string        `yaml:"token"`
	ProjectID      string        `yaml:"project_id"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PollConfig holds the refresh intervals.
type PollConfig struct {
	Tasks         time.Duration `yaml:"tasks"`
	Risks         time.Duration `yaml:"risks"`
	Notifications time.Duration `yaml:"notifications"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:   "8090",
		DBPath: "./data/boardsync.db",
		Atlas: AtlasConfig{
			APIURL:         "http://localhost:8000",
			TokenFile:      "./data/client-storage.json",
			RequestTimeout: 30 * time.Second,
		},
		Poll: PollConfig{
			Tasks:         10 * time.Second,
			Risks:         15 * time.Second,
			Notifications: 30 * time.Second,
		},
	}
}

// Load reads configuration from an optional YAML file named by
// ATLAS_CONFIG_FILE, then from environment variables, which take precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := getEnv("ATLAS_CONFIG_FILE", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.Debug = getEnvBool("DEBUG", cfg.Debug)
	cfg.Atlas.APIURL = strings.TrimRight(getEnv("ATLAS_API_URL", cfg.Atlas.APIURL), "/")
	cfg.Atlas.WSURL = getEnv("ATLAS_WS_URL", cfg.Atlas.WSURL)
	cfg.Atlas.TokenFile = getEnv("ATLAS_TOKEN_FILE", cfg.Atlas.TokenFile)
	cfg.Atlas.Token = getEnv("ATLAS_TOKEN", cfg.Atlas.Token)
	cfg.Atlas.ProjectID = getEnv("ATLAS_PROJECT_ID", cfg.Atlas.ProjectID)
	cfg.Atlas.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.Atlas.RequestTimeout)
	cfg.Poll.Tasks = getEnvDuration("TASK_POLL_INTERVAL", cfg.Poll.Tasks)
	cfg.Poll.Risks = getEnvDuration("RISK_POLL_INTERVAL", cfg.Poll.Risks)
	cfg.Poll.Notifications = getEnvDuration("NOTIFICATION_POLL_INTERVAL", cfg.Poll.Notifications)

	if cfg.Atlas.WSURL == "" {
		cfg.Atlas.WSURL = deriveWSURL(cfg.Atlas.APIURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	if c.Atlas.TokenFile == "" {
		return errors.New("ATLAS_TOKEN_FILE cannot be empty")
	}
	u, err := url.Parse(c.Atlas.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ATLAS_API_URL must be an http(s) URL, got %q", c.Atlas.APIURL)
	}
	if c.Atlas.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be > 0")
	}
	if c.Poll.Tasks <= 0 || c.Poll.Risks <= 0 || c.Poll.Notifications <= 0 {
		return errors.New("poll intervals must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the local API.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

func deriveWSURL(apiURL string) string {
	switch {
	case strings.HasPrefix(apiURL, "https://"):
		return "wss://" + strings.TrimPrefix(apiURL, "https://")
	case strings.HasPrefix(apiURL, "http://"):
		return "ws://" + strings.TrimPrefix(apiURL, "http://")
	}
	return apiURL
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvDuration accepts Go durations ("15s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
