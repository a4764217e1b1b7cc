// Package config manages inkzone configuration stored in the data directory:
// config.json for server settings and .env for credentials.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// FileName is the name of the configuration file in the data directory.
const FileName = "config.json"

// Backend kinds.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config stores all server-wide configuration.
// Loaded from config.json, created with defaults if missing.
type Config struct {
	// Backend selects the shared store: memory, file or redis.
	Backend string `json:"backend"`

	// PollIntervalMS is the period of the poll fallback in milliseconds.
	PollIntervalMS int `json:"poll_interval_ms"`

	// DisableWatch turns off change notifications; only polling remains.
	DisableWatch bool `json:"disable_watch"`

	// Redis holds the redis backend settings.
	Redis Redis `json:"redis"`

	// AdminPassphrase gates the admin API. The check is a plaintext
	// comparison and provides no real security.
	AdminPassphrase string `json:"admin_passphrase"`

	// Gemini configures the formulation service.
	Gemini Gemini `json:"gemini"`

	// RateLimits defines per-client rate limiting.
	RateLimits RateLimits `json:"rate_limits"`

	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	MaxRequestBodyBytes int64 `json:"max_request_body_bytes"`
}

// Redis holds the redis backend settings.
type Redis struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
	// Prefix is prepended to every key and to the change channel.
	Prefix string `json:"prefix"`
}

// Gemini configures the formulation service. An empty API key disables it
// and every formulation returns the fallback ink.
type Gemini struct {
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model"`
	// RequestsPerMinute throttles outgoing calls; 0 means unlimited.
	RequestsPerMinute int `json:"requests_per_minute"`
}

// RateLimits defines rate limiting configuration (requests per minute per
// client). 0 means unlimited.
type RateLimits struct {
	FormulateRatePerMin int `json:"formulate_rate_per_min"`
	WriteRatePerMin     int `json:"write_rate_per_min"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Backend:         BackendFile,
		PollIntervalMS:  1000,
		Redis:           Redis{Addr: "localhost:6379", Prefix: "inkzone:"},
		AdminPassphrase: "admin",
		Gemini:          Gemini{Model: "gemini-2.5-flash", RequestsPerMinute: 30},
		RateLimits: RateLimits{
			FormulateRatePerMin: 10,
			WriteRatePerMin:     60,
		},
		MaxRequestBodyBytes: 1 << 20,
	}
}

// PollInterval returns PollIntervalMS as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required with the redis backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.PollIntervalMS <= 0 {
		return errors.New("poll_interval_ms must be positive")
	}
	if c.Redis.DB < 0 {
		return errors.New("redis.db must be non-negative")
	}
	if c.AdminPassphrase == "" {
		return errors.New("admin_passphrase is required")
	}
	if c.Gemini.RequestsPerMinute < 0 {
		return errors.New("gemini.requests_per_minute must be non-negative")
	}
	if c.RateLimits.FormulateRatePerMin < 0 {
		return errors.New("rate_limits.formulate_rate_per_min must be non-negative")
	}
	if c.RateLimits.WriteRatePerMin < 0 {
		return errors.New("rate_limits.write_rate_per_min must be non-negative")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return errors.New("max_request_body_bytes must be positive")
	}
	return nil
}

// Load loads configuration from dataDir/config.json.
// Creates the file with defaults if it doesn't exist.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, FileName)
	cfg := Default()
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
		}
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/config.json.
func (c *Config) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(dataDir, FileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return nil
}

// LoadDotEnv reads dataDir/.env. A missing file yields an empty map.
func LoadDotEnv(dataDir string) (map[string]string, error) {
	env, err := godotenv.Read(filepath.Join(dataDir, ".env"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return env, nil
}

// ApplyEnv overrides settings with the credentials and endpoints found in
// env. Unknown keys are ignored.
func (c *Config) ApplyEnv(env map[string]string) error {
	if v := env["REDIS_ADDR"]; v != "" {
		c.Redis.Addr = v
	}
	if v := env["REDIS_PASSWORD"]; v != "" {
		c.Redis.Password = v
	}
	if v := env["REDIS_DB"]; v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		c.Redis.DB = db
	}
	if v := env["GEMINI_API_KEY"]; v != "" {
		c.Gemini.APIKey = v
	}
	if v := env["ADMIN_PASSPHRASE"]; v != "" {
		c.AdminPassphrase = v
	}
	return c.Validate()
}
