package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	SpeckleDir string         `toml:"speckle_dir"` // User Speckle directory (default: <user config dir>/Speckle)
	Server     ServerConfig   `toml:"server"`
	Auth       AuthConfig     `toml:"auth"`
	Accounts   AccountsConfig `toml:"accounts"`
	Storage    StorageConfig  `toml:"storage"`
	Client     ClientConfig   `toml:"client"`
	Refresh    RefreshConfig  `toml:"refresh"`
	Logging    LoggingConfig  `toml:"logging"`
}

// ServerConfig holds the fallback server used when no override is present
type ServerConfig struct {
	DefaultURL string `toml:"default_url"`
}

// AuthConfig contains the interactive login flow settings
type AuthConfig struct {
	AppID        string `toml:"app_id"`        // Must match the app registered on the server
	AppSecret    string `toml:"app_secret"`    // Must match the app registered on the server
	CallbackHost string `toml:"callback_host"` // Loopback host the browser redirects to
	CallbackPort int    `toml:"callback_port"` // Loopback port the browser redirects to (default: 29363)
	LoginTimeout string `toml:"login_timeout"` // e.g. "2m" - how long to wait for the browser redirect
}

// AccountsConfig contains account discovery settings
type AccountsConfig struct {
	Dir   string `toml:"dir"`   // Directory scanned recursively for *.json account files
	Scope string `toml:"scope"` // Logical scope of managed accounts in the object store
}

type StorageConfig struct {
	Type   string       `toml:"type"` // "sqlite" (default) or "badger"
	SQLite SQLiteConfig `toml:"sqlite"`
	Badger BadgerConfig `toml:"badger"`
	Sealed SealedConfig `toml:"sealed"`
}

// SQLiteConfig represents SQLite-specific configuration
type SQLiteConfig struct {
	Path          string `toml:"path"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
	WALMode       bool   `toml:"wal_mode"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// SealedConfig enables at-rest encryption of stored account records
type SealedConfig struct {
	IdentityFile string `toml:"identity_file"` // age X25519 identity; empty disables sealing
}

// ClientConfig controls calls to Speckle servers
type ClientConfig struct {
	RequestTimeout string  `toml:"request_timeout"` // e.g. "30s"
	PingTimeout    string  `toml:"ping_timeout"`    // e.g. "5s" - connectivity probe timeout
	RateLimit      float64 `toml:"rate_limit"`      // Requests per second across all servers
}

// RefreshConfig controls the background account refresh run by `serve`
type RefreshConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron expression or descriptor, e.g. "@every 15m"
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
	File   string   `toml:"file"`   // Log file path when "file" output is enabled
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	speckleDir := DefaultSpeckleDir()
	return &Config{
		SpeckleDir: speckleDir,
		Server: ServerConfig{
			DefaultURL: "https://app.speckle.systems",
		},
		Auth: AuthConfig{
			AppID:        "sca",
			AppSecret:    "sca",
			CallbackHost: "localhost",
			CallbackPort: 29363,
			LoginTimeout: "2m",
		},
		Accounts: AccountsConfig{
			Dir:   filepath.Join(speckleDir, "Accounts"),
			Scope: "Accounts",
		},
		Storage: StorageConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path:          filepath.Join(speckleDir, "Accounts.db"),
				BusyTimeoutMS: 5000,
				WALMode:       false,
			},
			Badger: BadgerConfig{
				Path: filepath.Join(speckleDir, "accounts-badger"),
			},
		},
		Client: ClientConfig{
			RequestTimeout: "30s",
			PingTimeout:    "5s",
			RateLimit:      10,
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Schedule: "@every 15m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
			File:   filepath.Join(speckleDir, "Logs", "speckle-accounts.log"),
		},
	}
}

// DefaultSpeckleDir returns the per-user Speckle directory
func DefaultSpeckleDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "Speckle"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "Speckle")
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if level := os.Getenv("SPECKLE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SPECKLE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if storageType := os.Getenv("SPECKLE_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
	if sqlitePath := os.Getenv("SPECKLE_SQLITE_PATH"); sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}
	if badgerPath := os.Getenv("SPECKLE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if identity := os.Getenv("SPECKLE_IDENTITY_FILE"); identity != "" {
		config.Storage.Sealed.IdentityFile = identity
	}

	if dir := os.Getenv("SPECKLE_ACCOUNTS_DIR"); dir != "" {
		config.Accounts.Dir = dir
	}
	if port := os.Getenv("SPECKLE_CALLBACK_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Auth.CallbackPort = p
		}
	}
	if schedule := os.Getenv("SPECKLE_REFRESH_SCHEDULE"); schedule != "" {
		config.Refresh.Schedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, logLevel string, callbackPort int) {
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	if callbackPort != 0 {
		config.Auth.CallbackPort = callbackPort
	}
}

// Validate checks values that would otherwise fail deep inside a service
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "sqlite", "badger":
	default:
		return fmt.Errorf("unsupported storage type: %s (valid: sqlite, badger)", c.Storage.Type)
	}

	if c.Auth.CallbackPort < 0 || c.Auth.CallbackPort > 65535 {
		return fmt.Errorf("invalid callback port: %d", c.Auth.CallbackPort)
	}

	for name, value := range map[string]string{
		"auth.login_timeout":     c.Auth.LoginTimeout,
		"client.request_timeout": c.Client.RequestTimeout,
		"client.ping_timeout":    c.Client.PingTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", name, value)
		}
	}

	if c.Refresh.Enabled {
		if err := ValidateSchedule(c.Refresh.Schedule); err != nil {
			return err
		}
	}

	return nil
}

// ValidateSchedule checks that a refresh schedule parses as a standard cron spec or descriptor
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("refresh schedule cannot be empty")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return nil
}

// LoginTimeout returns the parsed login timeout
func (c *Config) LoginTimeout() time.Duration {
	return parseDurationOr(c.Auth.LoginTimeout, 2*time.Minute)
}

// RequestTimeout returns the parsed request timeout
func (c *Config) RequestTimeout() time.Duration {
	return parseDurationOr(c.Client.RequestTimeout, 30*time.Second)
}

// PingTimeout returns the parsed connectivity probe timeout
func (c *Config) PingTimeout() time.Duration {
	return parseDurationOr(c.Client.PingTimeout, 5*time.Second)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
