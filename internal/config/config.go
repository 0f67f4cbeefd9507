package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the console's settings.
type Config struct {
	APIURL         string
	Token          string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	ItemsPerPage   int
	SearchDebounce time.Duration
	LogFile        string
	LogLevel       string
	MetricsAddr    string
	ExportDir      string
}

// TokenEnv overrides the token from the config file.
const TokenEnv = "GATEHOUSE_TOKEN"

const (
	defaultConfigPath     = "~/.config/gatehouse/config.toml"
	defaultAPIURL         = "http://127.0.0.1:8000"
	defaultRequestTimeout = 10 * time.Second
	defaultPollInterval   = 30 * time.Second
	defaultItemsPerPage   = 10
	defaultSearchDebounce = 500 * time.Millisecond
	defaultLogFile        = "~/.local/state/gatehouse/gatehouse.log"
	defaultLogLevel       = "info"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		RequestTimeout: defaultRequestTimeout,
		PollInterval:   defaultPollInterval,
		ItemsPerPage:   defaultItemsPerPage,
		SearchDebounce: defaultSearchDebounce,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		ExportDir:      ".",
	}
}

// Load locates and parses the config file, falling back to defaults when it
// is missing. GATEHOUSE_TOKEN wins over the file's token.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL         string `toml:"api_url"`
		Token          string `toml:"token"`
		RequestTimeout string `toml:"request_timeout"`
		PollInterval   string `toml:"poll_interval"`
		ItemsPerPage   int    `toml:"items_per_page"`
		SearchDebounce string `toml:"search_debounce"`
		LogFile        string `toml:"log_file"`
		LogLevel       string `toml:"log_level"`
		MetricsAddr    string `toml:"metrics_addr"`
		ExportDir      string `toml:"export_dir"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	cfg.Token = strings.TrimSpace(raw.Token)

	if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout, defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = parseDuration("poll_interval", raw.PollInterval, defaultPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.SearchDebounce, err = parseDuration("search_debounce", raw.SearchDebounce, defaultSearchDebounce); err != nil {
		return Config{}, err
	}

	if raw.ItemsPerPage < 0 {
		return Config{}, fmt.Errorf("parse config: items_per_page must be positive, got %d", raw.ItemsPerPage)
	}
	if raw.ItemsPerPage > 0 {
		cfg.ItemsPerPage = raw.ItemsPerPage
	}

	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		cfg.LogLevel = v
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	if v := strings.TrimSpace(raw.ExportDir); v != "" {
		cfg.ExportDir = mustExpand(v)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(TokenEnv)); v != "" {
		cfg.Token = v
	}
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parse config: %s must be positive, got %s", key, trimmed)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
