// Package config resolves library and CLI settings from the environment and
// an optional per-user YAML file. Environment variables win over the file,
// the file wins over built-in defaults.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultDebounce = 500 * time.Millisecond

// Config holds the discovery configuration
type Config struct {
	// SearchPaths overrides the platform's default scan directories.
	SearchPaths []string
	// IconTheme names the icon theme used for icon-name resolution on Linux.
	IconTheme string
	// Debounce is the window the watch layer collects filesystem changes
	// over before publishing them as one batch.
	Debounce time.Duration
	// LogLevel is the minimum level for the CLI's structured logs.
	LogLevel slog.Level
}

// fileConfig mirrors the YAML config file layout.
type fileConfig struct {
	SearchPaths []string `yaml:"searchPaths"`
	IconTheme   string   `yaml:"iconTheme"`
	DebounceMS  int      `yaml:"debounceMs"`
	LogLevel    string   `yaml:"logLevel"`
}

// Load reads configuration from the environment with sensible defaults,
// merging in ~/.config/appscout/config.yaml when present.
func Load() *Config {
	return LoadWithLogger(slog.Default())
}

// LoadWithLogger is like Load but allows specifying a logger.
func LoadWithLogger(logger *slog.Logger) *Config {
	cfg := &Config{
		Debounce: DefaultDebounce,
		LogLevel: slog.LevelInfo,
	}

	if file, path, err := loadFile(); err != nil {
		logger.Warn("ignoring unreadable config file", "path", path, "error", err)
	} else if file != nil {
		cfg.SearchPaths = file.SearchPaths
		cfg.IconTheme = file.IconTheme
		if file.DebounceMS > 0 {
			cfg.Debounce = time.Duration(file.DebounceMS) * time.Millisecond
		}
		if level, ok := parseLevel(file.LogLevel); ok {
			cfg.LogLevel = level
		}
	}

	if paths := getEnv("APPSCOUT_SEARCH_PATHS", ""); paths != "" {
		cfg.SearchPaths = splitPathList(paths)
	}
	cfg.IconTheme = getEnv("APPSCOUT_ICON_THEME", cfg.IconTheme)
	if ms := getEnvAsInt("APPSCOUT_DEBOUNCE_MS", 0); ms > 0 {
		cfg.Debounce = time.Duration(ms) * time.Millisecond
	}
	if level, ok := parseLevel(os.Getenv("APPSCOUT_LOG_LEVEL")); ok {
		cfg.LogLevel = level
	}

	return cfg
}

// loadFile reads the per-user YAML config. A missing file is not an error.
func loadFile() (*fileConfig, string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, "", nil
	}
	path := filepath.Join(home, ".config", "appscout", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, path, nil
		}
		return nil, path, err
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, path, err
	}
	return &file, path, nil
}

// splitPathList splits on the platform's path-list separator and drops
// empty elements.
func splitPathList(value string) []string {
	var paths []string
	for _, p := range strings.Split(value, string(os.PathListSeparator)) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func parseLevel(value string) (slog.Level, bool) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
