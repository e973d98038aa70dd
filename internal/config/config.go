// Package config provides YAML-based configuration for the log viewer server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// MemoryDatabase keeps the store in memory; nothing survives a restart.
const MemoryDatabase = ":memory:"

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Query      QueryConfig      `yaml:"query"`
	Cache      CacheConfig      `yaml:"cache"`
	Processing ProcessingConfig `yaml:"processing"`
	Security   SecurityConfig   `yaml:"security"`
	Advanced   AdvancedConfig   `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bind_address"`
	EnableCORS   bool   `yaml:"enable_cors"`
	AllowOrigins string `yaml:"allow_origins"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
	IdleTimeout  int    `yaml:"idle_timeout_seconds"`
	BodyLimit    string `yaml:"body_limit"`
}

// StorageConfig contains database settings
type StorageConfig struct {
	DataDirectory string `yaml:"data_directory"`
	// DatabaseFile is relative to DataDirectory unless absolute.
	// MemoryDatabase disables persistence.
	DatabaseFile string `yaml:"database_file"`
}

// QueryConfig contains entry query defaults and caps
type QueryConfig struct {
	DefaultLimit     int    `yaml:"default_limit"`
	LatestLimit      int    `yaml:"latest_limit"`
	MaxLimit         int    `yaml:"max_limit"`
	MaxContextLines  int    `yaml:"max_context_lines"`
	DefaultVerbosity string `yaml:"default_verbosity"`
	// MaxLogsPerQuery bounds how many logs a project-wide query parses.
	MaxLogsPerQuery int `yaml:"max_logs_per_query"`
}

// CacheConfig contains parsed-content cache settings
type CacheConfig struct {
	MaxEntries             int `yaml:"max_entries"`
	IdleTimeoutMinutes     int `yaml:"idle_timeout_minutes"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

// ProcessingConfig contains response processing settings
type ProcessingConfig struct {
	EnableCompression bool `yaml:"enable_compression"`
	CompressionLevel  int  `yaml:"compression_level"`
	// MaxConcurrentParses bounds parallel fetch+parse in project-wide queries.
	MaxConcurrentParses int `yaml:"max_concurrent_parses"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	AllowDeletion bool `yaml:"allow_deletion"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `yaml:"log_level"`
	EnableRequestLogging    bool   `yaml:"enable_request_logging"`
	DuckDBThreads           int    `yaml:"duckdb_threads"`
	DuckDBMemoryLimit       string `yaml:"duckdb_memory_limit"`
	MaxConcurrentReads      int    `yaml:"max_concurrent_reads"`
	WebSocketMaxMessageSize int    `yaml:"websocket_max_message_size_kb"`
	// FeedLatestEntries is how many entries a log:ingested message carries.
	FeedLatestEntries int `yaml:"feed_latest_entries"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "256M",
		},
		Storage: StorageConfig{
			DataDirectory: "./data",
			DatabaseFile:  "logs.duckdb",
		},
		Query: QueryConfig{
			DefaultLimit:     100,
			LatestLimit:      20,
			MaxLimit:         1000,
			MaxContextLines:  50,
			DefaultVerbosity: "standard",
			MaxLogsPerQuery:  50,
		},
		Cache: CacheConfig{
			MaxEntries:             32,
			IdleTimeoutMinutes:     30,
			CleanupIntervalMinutes: 5,
		},
		Processing: ProcessingConfig{
			EnableCompression:   true,
			CompressionLevel:    5,
			MaxConcurrentParses: 4,
		},
		Security: SecurityConfig{
			AllowDeletion: true,
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			EnableRequestLogging:    true,
			DuckDBThreads:           4,
			DuckDBMemoryLimit:       "1GB",
			MaxConcurrentReads:      3,
			WebSocketMaxMessageSize: 64,
			FeedLatestEntries:       20,
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults
// there first if it does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Keys missing from the file keep their defaults.
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Log Viewer configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the server cannot run with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Query.MaxLimit <= 0 {
		return fmt.Errorf("query.max_limit must be positive, got %d", c.Query.MaxLimit)
	}
	if c.Query.DefaultLimit <= 0 || c.Query.DefaultLimit > c.Query.MaxLimit {
		return fmt.Errorf("query.default_limit must be in 1..%d, got %d", c.Query.MaxLimit, c.Query.DefaultLimit)
	}
	if c.Query.LatestLimit <= 0 || c.Query.LatestLimit > c.Query.MaxLimit {
		return fmt.Errorf("query.latest_limit must be in 1..%d, got %d", c.Query.MaxLimit, c.Query.LatestLimit)
	}
	switch c.Query.DefaultVerbosity {
	case "", "compact", "standard", "full":
	default:
		return fmt.Errorf("unknown query.default_verbosity %q", c.Query.DefaultVerbosity)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}

	if dbPath := os.Getenv("DUCKDB_PATH"); dbPath != "" {
		c.Storage.DatabaseFile = dbPath
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetDatabasePath returns the DuckDB file path, or "" for an in-memory store.
func (c *AppConfig) GetDatabasePath() string {
	switch c.Storage.DatabaseFile {
	case "", MemoryDatabase:
		return ""
	}
	if filepath.IsAbs(c.Storage.DatabaseFile) {
		return c.Storage.DatabaseFile
	}
	return filepath.Join(c.Storage.DataDirectory, c.Storage.DatabaseFile)
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// CacheIdleTimeout returns how long an unused parsed log stays cached.
func (c *AppConfig) CacheIdleTimeout() time.Duration {
	return time.Duration(c.Cache.IdleTimeoutMinutes) * time.Minute
}

// CacheCleanupInterval returns how often idle cache entries are swept.
func (c *AppConfig) CacheCleanupInterval() time.Duration {
	if c.Cache.CleanupIntervalMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(c.Cache.CleanupIntervalMinutes) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDirectory}
	if db := c.GetDatabasePath(); db != "" {
		dirs = append(dirs, filepath.Dir(db))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
