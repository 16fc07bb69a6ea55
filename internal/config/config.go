package config

// Package config handles configuration loading for incomeview.
// It supports YAML config files, a .env file and environment variable overrides.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	FMP     FMPConfig     `mapstructure:"fmp"     yaml:"fmp"`
	View    ViewConfig    `mapstructure:"view"    yaml:"view"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// FMPConfig holds the Financial Modeling Prep connection settings.
type FMPConfig struct {
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url"`
	APIKey     string `mapstructure:"api_key"     yaml:"api_key"`
	Symbol     string `mapstructure:"symbol"      yaml:"symbol"`      // e.g., "AAPL"
	Period     string `mapstructure:"period"      yaml:"period"`      // "annual"
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"` // 0 = no timeout
}

// ViewConfig holds the initial table view settings.
type ViewConfig struct {
	SortField string `mapstructure:"sort_field" yaml:"sort_field"` // "date", "revenue", "netIncome", "" (none)
	SortOrder string `mapstructure:"sort_order" yaml:"sort_order"` // "asc" or "desc"
	Format    string `mapstructure:"format"     yaml:"format"`     // "term", "markdown", "json"
	Width     int    `mapstructure:"width"      yaml:"width"`
	Style     string `mapstructure:"style"      yaml:"style"` // glamour style, "auto" detects
}

// APIConfig holds the local HTTP view server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Logging.Level, "debug")
}

// Addr returns the host:port the view server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FMP.Symbol) == "" {
		return fmt.Errorf("fmp.symbol must not be empty")
	}
	if c.FMP.TimeoutSec < 0 {
		return fmt.Errorf("fmp.timeout_sec must be >= 0, got %d", c.FMP.TimeoutSec)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	return nil
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.incomeview/config.yaml (home directory)
//  3. /etc/incomeview/config.yaml (system)
//
// Environment variables override config file values.
// Format: INCOMEVIEW_<SECTION>_<KEY>, e.g., INCOMEVIEW_FMP_SYMBOL
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".incomeview"))
	v.AddConfigPath("/etc/incomeview")

	// Environment variable settings
	v.SetEnvPrefix("INCOMEVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("INCOMEVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files (default
// "./.env") into the process environment. Variables already set win.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("error loading %s: %w", p, err)
		}
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// FMP defaults
	v.SetDefault("fmp.base_url", "https://financialmodelingprep.com")
	v.SetDefault("fmp.api_key", "")
	v.SetDefault("fmp.symbol", "AAPL")
	v.SetDefault("fmp.period", "annual")
	v.SetDefault("fmp.timeout_sec", 30)

	// View defaults (oldest first)
	v.SetDefault("view.sort_field", "date")
	v.SetDefault("view.sort_order", "asc")
	v.SetDefault("view.format", "term")
	v.SetDefault("view.width", 120)
	v.SetDefault("view.style", "auto")

	// API defaults
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Environment variables that supply the FMP API key, in priority order.
const (
	EnvFMPKey        = "FMP_API_KEY"
	EnvPrefixedKey   = "INCOMEVIEW_FMP_API_KEY"
	EnvLegacyViteKey = "VITE_APP_FMP_KEY"
)

// overrideFromEnv explicitly reads the API key from environment variables.
// FMP_API_KEY wins over everything; VITE_APP_FMP_KEY (the variable the
// browser build used) is only a fallback.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(EnvFMPKey); key != "" {
		cfg.FMP.APIKey = key
		return
	}
	if cfg.FMP.APIKey != "" {
		return
	}
	if key := os.Getenv(EnvLegacyViteKey); key != "" {
		cfg.FMP.APIKey = key
	}
}

// Masked returns a copy of cfg with secrets masked, safe to print.
func (c *Config) Masked() Config {
	cp := *c
	if cp.FMP.APIKey != "" {
		cp.FMP.APIKey = maskKey(cp.FMP.APIKey)
	}
	cp.API.CORSOrigins = append([]string(nil), c.API.CORSOrigins...)
	return cp
}

// YAML encodes the masked configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	m := c.Masked()
	out, err := yaml.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("error encoding config: %w", err)
	}
	return out, nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
