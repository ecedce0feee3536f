package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Version is set at build time via -ldflags
// Default "dev" is used for development builds
var Version = "dev"

// Config holds all application configuration loaded from environment variables.
// All fields have sensible defaults if environment variables are not set.
type Config struct {
	// LogLevel controls logging verbosity: "debug", "info", "warn", "error" (default: "info")
	LogLevel string

	// DataDir is the directory for persistent data (database, logs, thumbnails)
	// Default: /config in Docker, ./config locally
	DataDir string

	// DatabasePath is the SQLite database file path (default: <DataDir>/drivedex.db)
	DatabasePath string

	// LogDir is the directory for log files (default: <DataDir>/logs)
	LogDir string

	// ThumbDir is the root of the sharded thumbnail tree (default: <DataDir>/thumbs)
	ThumbDir string

	// NotifyURL is a shoutrrr URL for scan completion/interruption notifications.
	// Empty disables notifications.
	NotifyURL string

	// BatchSize is the number of processed entries per catalog transaction (default: 100)
	BatchSize int

	// FlushInterval is the maximum age of an open transaction before it is
	// committed regardless of batch fill (default: 5s)
	FlushInterval time.Duration

	// ThumbMaxWidth caps generated thumbnail width in pixels (default: 320)
	ThumbMaxWidth int

	// RemountAttempts bounds mount recovery retries (default: 5)
	RemountAttempts int

	// RemountBackoff is the fixed delay between mount recovery attempts (default: 5s)
	RemountBackoff time.Duration

	// RetentionDays is the number of days to keep finished scan sessions (default: 0 = keep forever)
	RetentionDays int
}

// Global singleton
var cfg *Config

// Load reads configuration from environment variables with sensible defaults.
// Should be called once at application startup.
func Load() *Config {
	// Determine DataDir - this is where all persistent data lives
	dataDir := getEnvOrDefault("DRIVEDEX_DATA_DIR", "")
	if dataDir == "" {
		// Check if we're in Docker (has /config directory)
		if info, err := os.Stat("/config"); err == nil && info.IsDir() {
			dataDir = "/config"
		} else {
			// Local/bare-metal - use ./config relative to executable or cwd
			if execPath, err := os.Executable(); err == nil {
				execDir := filepath.Dir(execPath)
				dataDir = filepath.Join(execDir, "config")
			} else if cwd, err := os.Getwd(); err == nil {
				dataDir = filepath.Join(cwd, "config")
			} else {
				dataDir = "./config"
			}
		}
	}

	// Ensure dataDir is absolute
	if absDataDir, err := filepath.Abs(dataDir); err == nil {
		dataDir = absDataDir
	}

	// Create data directory if it doesn't exist
	os.MkdirAll(dataDir, 0755)

	// Database path - inside data directory unless explicitly set
	dbPath := getEnvOrDefault("DRIVEDEX_DATABASE_PATH", "")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "drivedex.db")
	}

	// Log directory - inside data directory
	logDir := filepath.Join(dataDir, "logs")
	os.MkdirAll(logDir, 0755)

	// Thumbnail tree - inside data directory unless explicitly set
	thumbDir := getEnvOrDefault("DRIVEDEX_THUMB_DIR", "")
	if thumbDir == "" {
		thumbDir = filepath.Join(dataDir, "thumbs")
	}

	cfg = &Config{
		LogLevel:        strings.ToLower(getEnvOrDefault("DRIVEDEX_LOG_LEVEL", "info")),
		DataDir:         dataDir,
		DatabasePath:    dbPath,
		LogDir:          logDir,
		ThumbDir:        thumbDir,
		NotifyURL:       getEnvOrDefault("DRIVEDEX_NOTIFY_URL", ""),
		BatchSize:       getEnvIntOrDefault("DRIVEDEX_BATCH_SIZE", 100),
		FlushInterval:   getEnvDurationOrDefault("DRIVEDEX_FLUSH_INTERVAL", 5*time.Second),
		ThumbMaxWidth:   getEnvIntOrDefault("DRIVEDEX_THUMB_MAX_WIDTH", 320),
		RemountAttempts: getEnvIntOrDefault("DRIVEDEX_REMOUNT_ATTEMPTS", 5),
		RemountBackoff:  getEnvDurationOrDefault("DRIVEDEX_REMOUNT_BACKOFF", 5*time.Second),
		RetentionDays:   getEnvIntOrDefault("DRIVEDEX_RETENTION_DAYS", 0),
	}

	// Validate log level
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		cfg.LogLevel = "info" // Fall back to info for invalid values
	}

	// Guard against nonsensical thresholds
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	return cfg
}

// Get returns the current configuration. Panics if Load() hasn't been called.
func Get() *Config {
	if cfg == nil {
		panic("config.Load() must be called before config.Get()")
	}
	return cfg
}

// SetForTesting allows tests to set the global config without calling Load().
// This should ONLY be used in test code.
func SetForTesting(c *Config) {
	cfg = c
}

// NewTestConfig returns a minimal Config suitable for unit tests.
func NewTestConfig() *Config {
	return &Config{
		LogLevel:        "debug",
		DataDir:         os.TempDir(),
		DatabasePath:    ":memory:",
		LogDir:          os.TempDir(),
		ThumbDir:        os.TempDir(),
		BatchSize:       10,
		FlushInterval:   time.Second,
		ThumbMaxWidth:   320,
		RemountAttempts: 5,
		RemountBackoff:  time.Millisecond,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
