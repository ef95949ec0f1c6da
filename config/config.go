// Package config loads the davlockd daemon configuration from TOML.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backend types.
const (
	StorageMemory     = "memory"
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Locks        LocksConfig        `toml:"locks"`
	Storage      StorageConfig      `toml:"storage"`
	Precondition PreconditionConfig `toml:"precondition"`
	Log          LogConfig          `toml:"log"`
}

// ServerConfig holds gRPC listener settings.
type ServerConfig struct {
	ListenAddress   string   `toml:"listen_address"`
	RequestTimeout  Duration `toml:"request_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`

	// Token bucket: RateLimit requests per RateLimitWindow, bursting to
	// RateLimitBurst.
	EnableRateLimit bool     `toml:"enable_rate_limit"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitBurst  int      `toml:"rate_limit_burst"`
	RateLimitWindow Duration `toml:"rate_limit_window"`

	KeepaliveTime    Duration `toml:"keepalive_time"`
	KeepaliveTimeout Duration `toml:"keepalive_timeout"`
}

// LocksConfig configures the lock store.
type LocksConfig struct {
	DefaultTimeout Duration `toml:"default_timeout"`
	MaxTimeout     Duration `toml:"max_timeout"`
	MaxLocks       int      `toml:"max_locks"`
	ReapInterval   Duration `toml:"reap_interval"` // 0 disables the reaper
}

// StorageConfig selects the entity-tag source.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", or "s3"

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket       string `toml:"s3_bucket,omitempty"`
	S3Prefix       string `toml:"s3_prefix,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3Endpoint     string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID  string `toml:"s3_access_key_id,omitempty"`
	S3SecretKey    string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle bool   `toml:"s3_use_path_style,omitempty"`

	// CacheSize enables an LRU cache of looked-up tags when positive.
	CacheSize int      `toml:"cache_size"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

// PreconditionConfig configures If header evaluation.
type PreconditionConfig struct {
	// BaseURL is the absolute URL of the WebDAV root. Tagged-list
	// references outside it never match.
	BaseURL string `toml:"base_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Default returns a Config with every field set to a usable value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:    "127.0.0.1:7070",
			RequestTimeout:   Duration(5 * time.Second),
			ShutdownTimeout:  Duration(10 * time.Second),
			EnableRateLimit:  false,
			RateLimit:        1000,
			RateLimitBurst:   100,
			RateLimitWindow:  Duration(time.Second),
			KeepaliveTime:    Duration(2 * time.Minute),
			KeepaliveTimeout: Duration(20 * time.Second),
		},
		Locks: LocksConfig{
			DefaultTimeout: Duration(5 * time.Minute),
			MaxTimeout:     Duration(24 * time.Hour),
			MaxLocks:       100000,
			ReapInterval:   Duration(30 * time.Second),
		},
		Storage: StorageConfig{
			Type:     StorageMemory,
			CacheTTL: Duration(5 * time.Second),
		},
		Precondition: PreconditionConfig{
			BaseURL: "http://localhost/",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r on top of the defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes cfg to w.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config from %s: %w", path, err)
	}
	return cfg, nil
}

// Init writes cfg to a new file at path. It refuses to overwrite.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.ListenAddress == "" {
		return NewConfigError("server.listen_address cannot be empty")
	}

	checkPositiveDuration := func(val Duration, name string) error {
		if val <= 0 {
			return NewConfigError(fmt.Sprintf("%s must be positive", name))
		}
		return nil
	}
	checkPositiveInt := func(val int, name string) error {
		if val <= 0 {
			return NewConfigError(fmt.Sprintf("%s must be positive", name))
		}
		return nil
	}

	if err := checkPositiveDuration(c.Server.RequestTimeout, "server.request_timeout"); err != nil {
		return err
	}
	if err := checkPositiveDuration(c.Server.ShutdownTimeout, "server.shutdown_timeout"); err != nil {
		return err
	}
	if c.Server.EnableRateLimit {
		if err := checkPositiveInt(c.Server.RateLimit, "server.rate_limit"); err != nil {
			return err
		}
		if err := checkPositiveInt(c.Server.RateLimitBurst, "server.rate_limit_burst"); err != nil {
			return err
		}
		if err := checkPositiveDuration(c.Server.RateLimitWindow, "server.rate_limit_window"); err != nil {
			return err
		}
	}

	if err := checkPositiveDuration(c.Locks.DefaultTimeout, "locks.default_timeout"); err != nil {
		return err
	}
	if c.Locks.MaxTimeout < c.Locks.DefaultTimeout {
		return NewConfigError("locks.max_timeout must not be below locks.default_timeout")
	}
	if c.Locks.MaxLocks < 0 {
		return NewConfigError("locks.max_locks cannot be negative")
	}
	if c.Locks.ReapInterval < 0 {
		return NewConfigError("locks.reap_interval cannot be negative")
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageFilesystem:
		if c.Storage.FSRoot == "" {
			return NewConfigError("filesystem storage requires storage.fs_root to be set")
		}
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return NewConfigError("s3 storage requires storage.s3_bucket to be set")
		}
		if (c.Storage.S3AccessKeyID == "") != (c.Storage.S3SecretKey == "") {
			return NewConfigError("storage.s3_access_key_id and storage.s3_secret_access_key must be set together")
		}
	default:
		return NewConfigError(fmt.Sprintf("unknown storage type: %q", c.Storage.Type))
	}
	if c.Storage.CacheSize < 0 {
		return NewConfigError("storage.cache_size cannot be negative")
	}

	u, err := url.Parse(c.Precondition.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return NewConfigError(fmt.Sprintf("precondition.base_url must be an absolute URL, got %q", c.Precondition.BaseURL))
	}
	return nil
}

// ConfigError represents a validation error in Config.
type ConfigError struct {
	Message string
}

// NewConfigError returns a new ConfigError instance.
func NewConfigError(msg string) *ConfigError {
	return &ConfigError{Message: msg}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error: " + e.Message
}
