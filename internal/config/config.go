package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const defaultMaxUploadBytes = 64 << 20

// Config holds the server settings. Values come from DefaultConfig, then the
// optional TOML file named by CONFIG_FILE, then the environment.
type Config struct {
	Port               string   `toml:"port" env:"PORT"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	FrontendDistPath   string   `toml:"frontend_dist_path" env:"FRONTEND_DIST_PATH"`

	MaxUploadBytes      int64 `toml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	UploadRatePerMinute int   `toml:"upload_rate_per_minute" env:"UPLOAD_RATE_PER_MINUTE"`
	UploadBurst         int   `toml:"upload_burst" env:"UPLOAD_BURST"`

	SessionCacheSize int    `toml:"session_cache_size" env:"SESSION_CACHE_SIZE"`
	WorkerQueueSize  int    `toml:"worker_queue_size" env:"WORKER_QUEUE_SIZE"`
	HelvaultWatchDir string `toml:"helvault_watch_dir" env:"HELVAULT_WATCH_DIR"`
	TempDir          string `toml:"temp_dir" env:"TEMP_DIR"`

	Debug bool `toml:"debug" env:"DEBUG"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Port:                "8080",
		CORSAllowedOrigins:  []string{"http://localhost:5173", "http://localhost:8080"},
		MaxUploadBytes:      defaultMaxUploadBytes,
		UploadRatePerMinute: 30,
		UploadBurst:         5,
		SessionCacheSize:    16,
		WorkerQueueSize:     32,
	}
}

// Load builds the configuration. A missing .env file is ignored; a missing
// CONFIG_FILE is an error since it was asked for explicitly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	c.Port = strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.UploadRatePerMinute <= 0 {
		return fmt.Errorf("upload_rate_per_minute must be positive, got %d", c.UploadRatePerMinute)
	}
	if c.UploadBurst <= 0 {
		return fmt.Errorf("upload_burst must be positive, got %d", c.UploadBurst)
	}
	if c.SessionCacheSize <= 0 {
		return fmt.Errorf("session_cache_size must be positive, got %d", c.SessionCacheSize)
	}
	if c.WorkerQueueSize <= 0 {
		return fmt.Errorf("worker_queue_size must be positive, got %d", c.WorkerQueueSize)
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}
