// Package config assembles the server configuration from command-line
// flags, environment variables, and an optional .env file, in that order
// of precedence.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/inkshelfapp/inkshelf-server/internal/validation"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Library LibraryConfig
	Storage StorageConfig
	Watcher WatcherConfig
	Scanner ScannerConfig
	Sources SourcesConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration. Load lowercases Level and
// Format before validation. An empty Format lets the logger pick by
// environment (pretty in development, json in production).
type LoggerConfig struct {
	Level  string `validate:"required,oneof=debug info warn error"`
	Format string `validate:"omitempty,oneof=json pretty"`
}

// LibraryConfig locates the watched library.
type LibraryConfig struct {
	WatchDir string `validate:"required"`
}

// StorageConfig locates server-owned data: the badger store and the
// covers directory live under DataDir.
type StorageConfig struct {
	DataDir string `validate:"required"`
}

// WatcherConfig tunes file detection.
type WatcherConfig struct {
	// SettleSeconds is how long a file must stay unchanged before it
	// counts as fully written. Two seconds is the floor.
	SettleSeconds int `validate:"gte=2"`
}

// SettleDelay returns the settle window as a duration.
func (w WatcherConfig) SettleDelay() time.Duration {
	return time.Duration(w.SettleSeconds) * time.Second
}

// ScannerConfig tunes the startup scan.
type ScannerConfig struct {
	ScanOnStart bool
}

// SourceConfig is the per-source block shared by every external metadata
// client. An empty BaseURL means the client's canonical endpoint.
type SourceConfig struct {
	BaseURL    string        `validate:"omitempty,url"`
	RateLimit  int           `validate:"gte=1"`
	RateWindow time.Duration `validate:"gt=0"`
	Timeout    time.Duration `validate:"gt=0"`
	MaxRetries int           `validate:"gte=0"`
}

// GoogleBooksConfig adds the API key the volumes endpoint requires.
// An empty key leaves the Google Books source unavailable.
type GoogleBooksConfig struct {
	SourceConfig
	APIKey string
}

// MALConfig adds the MyAnimeList client ID header value. An empty ID
// leaves the MyAnimeList source unavailable.
type MALConfig struct {
	SourceConfig
	ClientID string
}

// SourcesConfig holds the five external source blocks.
type SourcesConfig struct {
	OpenLibrary SourceConfig
	GoogleBooks GoogleBooksConfig
	AniList     SourceConfig
	MAL         MALConfig
	MangaDex    SourceConfig
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load() (*Config, error) {
	watchDir := flag.String("watch-dir", "", "Path to the watched library directory")
	dataDir := flag.String("data-dir", "", "Path for server data (store, covers; default: ./data)")
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (json, pretty)")
	settleSeconds := flag.String("settle-seconds", "", "Seconds a file must stay unchanged before ingest (min 2)")
	scanOnStart := flag.String("scan-on-start", "", "Scan the library at startup (default: true)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// A missing .env file is fine; set values stay untouched either way.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(getConfigValue(*logLevel, "LOG_LEVEL", "info")),
			Format: strings.ToLower(getConfigValue(*logFormat, "LOG_FORMAT", "")),
		},
		Library: LibraryConfig{
			WatchDir: getConfigValue(*watchDir, "WATCH_DIR", ""),
		},
		Storage: StorageConfig{
			DataDir: getConfigValue(*dataDir, "DATA_DIR", "./data"),
		},
		Watcher: WatcherConfig{
			SettleSeconds: getIntConfigValue(*settleSeconds, "WATCHER_SETTLE_SECONDS", 2),
		},
		Scanner: ScannerConfig{
			ScanOnStart: getBoolConfigValue(*scanOnStart, "SCAN_ON_START", true),
		},
		Sources: sourcesFromEnv(),
	}

	if err := cfg.expandWatchDir(); err != nil {
		return nil, fmt.Errorf("invalid watch dir: %w", err)
	}
	if err := cfg.expandDataDir(); err != nil {
		return nil, fmt.Errorf("invalid data dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the assembled configuration. Presence and range rules
// live in the struct tags; every violation is reported at once.
func (c *Config) Validate() error {
	return validation.New().Validate(c)
}

// defaultSources returns the per-source defaults: documented public rate
// limits, the shared 10s timeout (Google Books 5s), three retries.
func defaultSources() SourcesConfig {
	return SourcesConfig{
		OpenLibrary: SourceConfig{
			RateLimit:  100,
			RateWindow: 5 * time.Minute,
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		GoogleBooks: GoogleBooksConfig{
			SourceConfig: SourceConfig{
				RateLimit:  100,
				RateWindow: time.Minute,
				Timeout:    5 * time.Second,
				MaxRetries: 3,
			},
		},
		AniList: SourceConfig{
			RateLimit:  90,
			RateWindow: time.Minute,
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		MAL: MALConfig{
			SourceConfig: SourceConfig{
				RateLimit:  60,
				RateWindow: time.Minute,
				Timeout:    10 * time.Second,
				MaxRetries: 3,
			},
		},
		MangaDex: SourceConfig{
			RateLimit:  5,
			RateWindow: time.Second,
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
	}
}

// sourcesFromEnv overlays environment variables onto the source defaults.
func sourcesFromEnv() SourcesConfig {
	defs := defaultSources()
	return SourcesConfig{
		OpenLibrary: sourceFromEnv("OPENLIBRARY", defs.OpenLibrary),
		GoogleBooks: GoogleBooksConfig{
			SourceConfig: sourceFromEnv("GOOGLEBOOKS", defs.GoogleBooks.SourceConfig),
			APIKey:       os.Getenv("GOOGLEBOOKS_API_KEY"),
		},
		AniList: sourceFromEnv("ANILIST", defs.AniList),
		MAL: MALConfig{
			SourceConfig: sourceFromEnv("MAL", defs.MAL.SourceConfig),
			ClientID:     os.Getenv("MAL_CLIENT_ID"),
		},
		MangaDex: sourceFromEnv("MANGADEX", defs.MangaDex),
	}
}

// sourceFromEnv reads one source block from <PREFIX>_BASE_URL,
// <PREFIX>_RATE_LIMIT, <PREFIX>_RATE_WINDOW_MS, <PREFIX>_TIMEOUT_MS and
// <PREFIX>_MAX_RETRIES.
func sourceFromEnv(prefix string, def SourceConfig) SourceConfig {
	return SourceConfig{
		BaseURL:    getConfigValue("", prefix+"_BASE_URL", def.BaseURL),
		RateLimit:  getIntConfigValue("", prefix+"_RATE_LIMIT", def.RateLimit),
		RateWindow: getMillisConfigValue(prefix+"_RATE_WINDOW_MS", def.RateWindow),
		Timeout:    getMillisConfigValue(prefix+"_TIMEOUT_MS", def.Timeout),
		MaxRetries: getIntConfigValue("", prefix+"_MAX_RETRIES", def.MaxRetries),
	}
}

// expandWatchDir expands ~ and makes the path absolute. An empty value is
// left for Validate to report.
func (c *Config) expandWatchDir() error {
	if c.Library.WatchDir == "" {
		return nil
	}

	expanded, err := expandPath(c.Library.WatchDir)
	if err != nil {
		return err
	}
	c.Library.WatchDir = expanded
	return nil
}

// expandDataDir expands ~ and makes the path absolute.
func (c *Config) expandDataDir() error {
	expanded, err := expandPath(c.Storage.DataDir)
	if err != nil {
		return err
	}
	c.Storage.DataDir = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getMillisConfigValue returns a duration from an integer-milliseconds
// env var, or the default when unset or unparseable.
func getMillisConfigValue(envKey string, defaultValue time.Duration) time.Duration {
	strValue := os.Getenv(envKey)
	if strValue == "" {
		return defaultValue
	}
	var ms int
	if _, err := fmt.Sscanf(strValue, "%d", &ms); err != nil || ms <= 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
