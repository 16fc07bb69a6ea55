package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// clearKeyEnv unsets every variable that can supply the API key for the
// duration of the test.
func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, e := range []string{EnvFMPKey, EnvPrefixedKey, EnvLegacyViteKey} {
		t.Setenv(e, "")
		os.Unsetenv(e)
	}
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearKeyEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// FMP defaults
	if cfg.FMP.BaseURL != "https://financialmodelingprep.com" {
		t.Errorf("FMP.BaseURL: got %q", cfg.FMP.BaseURL)
	}
	if cfg.FMP.Symbol != "AAPL" {
		t.Errorf("FMP.Symbol: got %q, want %q", cfg.FMP.Symbol, "AAPL")
	}
	if cfg.FMP.Period != "annual" {
		t.Errorf("FMP.Period: got %q, want %q", cfg.FMP.Period, "annual")
	}
	if cfg.FMP.TimeoutSec != 30 {
		t.Errorf("FMP.TimeoutSec: got %d, want 30", cfg.FMP.TimeoutSec)
	}
	if cfg.FMP.APIKey != "" {
		t.Errorf("FMP.APIKey: got %q, want empty", cfg.FMP.APIKey)
	}

	// View defaults
	if cfg.View.SortField != "date" {
		t.Errorf("View.SortField: got %q, want %q", cfg.View.SortField, "date")
	}
	if cfg.View.SortOrder != "asc" {
		t.Errorf("View.SortOrder: got %q, want %q", cfg.View.SortOrder, "asc")
	}
	if cfg.View.Format != "term" {
		t.Errorf("View.Format: got %q", cfg.View.Format)
	}
	if cfg.View.Width != 120 {
		t.Errorf("View.Width: got %d, want 120", cfg.View.Width)
	}

	// API defaults
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host: got %q", cfg.API.Host)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("API.CORSOrigins: got %v", cfg.API.CORSOrigins)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr: got %q", cfg.Addr())
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Debug() {
		t.Error("Debug() should be false at info level")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearKeyEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("INCOMEVIEW_FMP_SYMBOL", "MSFT")
	t.Setenv("INCOMEVIEW_API_PORT", "9090")
	t.Setenv("INCOMEVIEW_FMP_API_KEY", "prefixed-key-123456")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FMP.Symbol != "MSFT" {
		t.Errorf("FMP.Symbol: got %q, want MSFT", cfg.FMP.Symbol)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.FMP.APIKey != "prefixed-key-123456" {
		t.Errorf("FMP.APIKey: got %q", cfg.FMP.APIKey)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearKeyEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
fmp:
  api_key: "file-key-abcdef"
  symbol: "NVDA"
  timeout_sec: 0
view:
  sort_field: "revenue"
  sort_order: "desc"
api:
  port: 9999
logging:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.FMP.APIKey != "file-key-abcdef" {
		t.Errorf("FMP.APIKey: got %q", cfg.FMP.APIKey)
	}
	if cfg.FMP.Symbol != "NVDA" {
		t.Errorf("FMP.Symbol: got %q", cfg.FMP.Symbol)
	}
	if cfg.FMP.TimeoutSec != 0 {
		t.Errorf("FMP.TimeoutSec: got %d, want 0", cfg.FMP.TimeoutSec)
	}
	if cfg.View.SortField != "revenue" || cfg.View.SortOrder != "desc" {
		t.Errorf("View: got %+v", cfg.View)
	}
	if cfg.API.Port != 9999 {
		t.Errorf("API.Port: got %d", cfg.API.Port)
	}
	// Unset keys keep their defaults
	if cfg.FMP.Period != "annual" {
		t.Errorf("FMP.Period default lost: got %q", cfg.FMP.Period)
	}
	if !cfg.Debug() {
		t.Error("Debug() should be true at debug level")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile with nonexistent path should return error")
	}
}

// ── .env ──

func TestLoadDotEnv(t *testing.T) {
	clearKeyEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("VITE_APP_FMP_KEY=vite-key-1234567\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv(EnvLegacyViteKey) })

	if got := os.Getenv(EnvLegacyViteKey); got != "vite-key-1234567" {
		t.Errorf("VITE_APP_FMP_KEY: got %q", got)
	}

	cfg := &Config{}
	overrideFromEnv(cfg)
	if cfg.FMP.APIKey != "vite-key-1234567" {
		t.Errorf("legacy key fallback: got %q", cfg.FMP.APIKey)
	}
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv(EnvFMPKey, "from-process")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FMP_API_KEY=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv(EnvFMPKey); got != "from-process" {
		t.Errorf("FMP_API_KEY: got %q, want from-process", got)
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnvPriority(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv(EnvFMPKey, "primary-key")
	t.Setenv(EnvLegacyViteKey, "legacy-key")

	cfg := &Config{FMP: FMPConfig{APIKey: "from-config"}}
	overrideFromEnv(cfg)
	if cfg.FMP.APIKey != "primary-key" {
		t.Errorf("APIKey: got %q, want primary-key", cfg.FMP.APIKey)
	}
}

func TestOverrideFromEnvKeepsConfigOverLegacy(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv(EnvLegacyViteKey, "legacy-key")

	cfg := &Config{FMP: FMPConfig{APIKey: "from-config"}}
	overrideFromEnv(cfg)
	if cfg.FMP.APIKey != "from-config" {
		t.Errorf("APIKey: got %q, want from-config", cfg.FMP.APIKey)
	}
}

// ── Validate ──

func TestValidate(t *testing.T) {
	base := Config{FMP: FMPConfig{Symbol: "AAPL"}, API: APIConfig{Port: 8080}}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"empty symbol", func(c *Config) { c.FMP.Symbol = " " }, false},
		{"negative timeout", func(c *Config) { c.FMP.TimeoutSec = -1 }, false},
		{"port too large", func(c *Config) { c.API.Port = 70000 }, false},
	}
	for _, tt := range tests {
		c := base
		tt.mutate(&c)
		if err := c.Validate(); (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v", tt.name, err)
		}
	}
}

// ── Masked / YAML ──

func TestYAMLMasksKey(t *testing.T) {
	cfg := &Config{
		FMP: FMPConfig{APIKey: "abcdef1234567890", Symbol: "AAPL"},
		API: APIConfig{CORSOrigins: []string{"http://a"}},
	}
	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}
	if strings.Contains(string(out), "abcdef1234567890") {
		t.Errorf("YAML leaks API key:\n%s", out)
	}

	var back Config
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if back.FMP.APIKey != "abc...890" {
		t.Errorf("masked key: got %q", back.FMP.APIKey)
	}
	if back.FMP.Symbol != "AAPL" {
		t.Errorf("symbol: got %q", back.FMP.Symbol)
	}
	if cfg.FMP.APIKey != "abcdef1234567890" {
		t.Error("Masked mutated the receiver")
	}
}

// ── maskKey ──

func TestMaskKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
		{"123456789", "123...789"},
		{"ABCDEFGHIJKLMNOP", "ABC...NOP"},
	}
	for _, tc := range tests {
		got := maskKey(tc.input)
		if got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckAPIKeys / checkKey ──

func TestCheckAPIKeysEmpty(t *testing.T) {
	clearKeyEnv(t)
	statuses := CheckAPIKeys(&Config{})
	if len(statuses) != 1 {
		t.Fatalf("CheckAPIKeys: got %d statuses, want 1", len(statuses))
	}
	s := statuses[0]
	if s.IsSet {
		t.Error("key should not be set")
	}
	if s.Source != KeySourceNone {
		t.Errorf("Source: got %q, want %q", s.Source, KeySourceNone)
	}
}

func TestCheckAPIKeysFromConfig(t *testing.T) {
	clearKeyEnv(t)
	statuses := CheckAPIKeys(&Config{FMP: FMPConfig{APIKey: "config-key-value"}})
	s := statuses[0]
	if !s.IsSet || s.Source != KeySourceConfig {
		t.Errorf("status: got %+v", s)
	}
	if s.Masked != "con...lue" {
		t.Errorf("Masked: got %q", s.Masked)
	}
}

func TestCheckAPIKeysFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv(EnvFMPKey, "env-key-for-testing")
	statuses := CheckAPIKeys(&Config{FMP: FMPConfig{APIKey: "env-key-for-testing"}})
	s := statuses[0]
	if s.Source != KeySourceEnv {
		t.Errorf("Source: got %q, want %q", s.Source, KeySourceEnv)
	}
	if s.EnvVar != EnvFMPKey {
		t.Errorf("EnvVar: got %q", s.EnvVar)
	}
}

// ── homeDir ──

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() should not return empty string")
	}
}
