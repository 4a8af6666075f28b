package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.API.BaseURL != "https://graph.facebook.com" {
		t.Errorf("Expected default base URL to be https://graph.facebook.com, got %s", config.API.BaseURL)
	}

	if config.Output.Sink != SinkStdout {
		t.Errorf("Expected default sink to be stdout, got %s", config.Output.Sink)
	}

	if config.AccessToken != "" {
		t.Errorf("Expected no default access token, got %s", config.AccessToken)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TAP_INSTAGRAM_ACCESS_TOKEN", "env-token")
	t.Setenv("TAP_INSTAGRAM_REQUESTS_PER_MINUTE", "30")
	t.Setenv("TAP_INSTAGRAM_SINK", "JSONL")
	t.Setenv("TAP_INSTAGRAM_SELECTED_STREAMS", "media, stories,")
	t.Setenv("TAP_INSTAGRAM_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.AccessToken != "env-token" {
		t.Errorf("Expected access token to be env-token, got %s", config.AccessToken)
	}
	if config.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("Expected requests per minute to be 30, got %d", config.RateLimit.RequestsPerMinute)
	}
	if config.Output.Sink != SinkJSONL {
		t.Errorf("Expected sink to be jsonl, got %s", config.Output.Sink)
	}
	if len(config.Streams.Selected) != 2 || config.Streams.Selected[1] != "stories" {
		t.Errorf("Expected selected streams [media stories], got %v", config.Streams.Selected)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("TAP_INSTAGRAM_REQUESTS_PER_MINUTE", "lots")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err == nil {
		t.Error("Expected error for non-numeric requests per minute")
	}
}

func TestLoadFromFileJSON(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	content := `{"access_token": "json-token", "api": {"version": "v20.0", "timeout": "10s"}}`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load from file: %v", err)
	}

	if config.AccessToken != "json-token" {
		t.Errorf("Expected access token to be json-token, got %s", config.AccessToken)
	}
	if config.API.Version != "v20.0" {
		t.Errorf("Expected API version v20.0, got %s", config.API.Version)
	}
	if config.API.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", config.API.Timeout)
	}
	// Values absent from the file keep their defaults
	if config.RateLimit.RequestsPerMinute != 200 {
		t.Errorf("Expected default requests per minute to survive, got %d", config.RateLimit.RequestsPerMinute)
	}
}

func TestLoadFromFileNumericSeconds(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	content := `{
	"api": {"timeout": 30, "max_pages": 4},
	"rate_limit": {"usage_cooldown": 120},
	"retry": {"initial_delay": 2, "max_delay": "45s"}
}`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load from file: %v", err)
	}

	if config.API.Timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", config.API.Timeout)
	}
	if config.API.MaxPages != 4 {
		t.Errorf("Expected max pages 4, got %d", config.API.MaxPages)
	}
	if config.RateLimit.UsageCooldown != 2*time.Minute {
		t.Errorf("Expected usage cooldown 2m, got %v", config.RateLimit.UsageCooldown)
	}
	if config.Retry.InitialDelay != 2*time.Second || config.Retry.MaxDelay != 45*time.Second {
		t.Errorf("Unexpected retry delays: %+v", config.Retry)
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Expected empty file to load, got %v", err)
	}
	if config.API.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout, got %v", config.API.Timeout)
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tap.yaml")

	content := `
access_token: yaml-token
output:
  sink: sqlite
  sqlite_path: /tmp/records.db
streams:
  selected:
    - media
  check_schema: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load from file: %v", err)
	}

	if config.Output.Sink != SinkSQLite || config.Output.SQLitePath != "/tmp/records.db" {
		t.Errorf("Unexpected output config: %+v", config.Output)
	}
	if !config.Streams.CheckSchema {
		t.Error("Expected check_schema to be true")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for an explicit path that does not exist")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad sink", func(c *Config) { c.Output.Sink = "kafka" }, "invalid sink"},
		{"jsonl without dir", func(c *Config) { c.Output.Sink = SinkJSONL; c.Output.Directory = "" }, "output directory"},
		{"zero rpm", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }, "requests per minute"},
		{"too many retries", func(c *Config) { c.Retry.MaxAttempts = 11 }, "max attempts"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"negative pages", func(c *Config) { c.API.MaxPages = -1 }, "max pages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateDoesNotRequireToken(t *testing.T) {
	config := DefaultConfig()
	config.AccessToken = ""
	if err := config.Validate(); err != nil {
		t.Errorf("Expected missing token to be left to the tap, got %v", err)
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"access-token": "flag-token",
		"sink":         "JSONL",
		"output":       "/tmp/out",
		"select":       []string{"stories"},
		"check-schema": true,
		"max-pages":    3,
	})

	if config.AccessToken != "flag-token" {
		t.Errorf("Expected access token flag-token, got %s", config.AccessToken)
	}
	if config.Output.Sink != SinkJSONL || config.Output.Directory != "/tmp/out" {
		t.Errorf("Unexpected output config: %+v", config.Output)
	}
	if len(config.Streams.Selected) != 1 || config.Streams.Selected[0] != "stories" {
		t.Errorf("Unexpected selection: %v", config.Streams.Selected)
	}
	if config.API.MaxPages != 3 {
		t.Errorf("Expected max pages 3, got %d", config.API.MaxPages)
	}
}

func TestLoadPrecedence(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	configPath := filepath.Join(tempDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"access_token": "file-token", "api": {"version": "v18.0"}}`), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}
	t.Setenv("TAP_INSTAGRAM_API_VERSION", "v19.0")

	config, err := Load(configPath, map[string]interface{}{"access-token": "flag-token"})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.AccessToken != "flag-token" {
		t.Errorf("Expected flags to win, got %s", config.AccessToken)
	}
	if config.API.Version != "v19.0" {
		t.Errorf("Expected environment to override file, got %s", config.API.Version)
	}
}

func TestMasked(t *testing.T) {
	config := DefaultConfig()
	config.AccessToken = "EAAB1234567890xyz"

	masked := config.Masked()
	if masked.AccessToken != "EAAB...0xyz" {
		t.Errorf("Unexpected masked token %s", masked.AccessToken)
	}
	if config.AccessToken != "EAAB1234567890xyz" {
		t.Error("Masked must not modify the original config")
	}

	config.AccessToken = "short"
	if config.Masked().AccessToken != "***" {
		t.Error("Expected short tokens to be fully masked")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	config := DefaultConfig()
	config.AccessToken = "saved-token"
	config.Streams.Selected = []string{"media"}

	if err := config.Save(path); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	reloaded := DefaultConfig()
	if err := reloaded.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if reloaded.AccessToken != "saved-token" || reloaded.Streams.Selected[0] != "media" {
		t.Errorf("Unexpected reloaded config: %+v", reloaded)
	}
}
