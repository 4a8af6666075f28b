package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the tap reads
const EnvPrefix = "TAP_INSTAGRAM_"

// Sink kinds
const (
	SinkStdout = "stdout"
	SinkJSONL  = "jsonl"
	SinkSQLite = "sqlite"
)

// Config holds all configuration options for the tap
type Config struct {
	// Graph API access token, the only setting a minimal config carries
	AccessToken string `yaml:"access_token" json:"access_token"`

	// Stored credential account used when AccessToken is empty
	Account string `yaml:"account,omitempty" json:"account,omitempty"`

	API       APIConfig       `yaml:"api" json:"api"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Streams   StreamsConfig   `yaml:"streams" json:"streams"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// APIConfig holds Graph API connection settings
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Version   string        `yaml:"version" json:"version"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	MaxPages  int           `yaml:"max_pages" json:"max_pages"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	UsageThreshold    float64       `yaml:"usage_threshold" json:"usage_threshold"`
	UsageCooldown     time.Duration `yaml:"usage_cooldown" json:"usage_cooldown"`
}

// RetryConfig holds retry configuration for the HTTP layer
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
}

// OutputConfig selects where messages go
type OutputConfig struct {
	Sink       string `yaml:"sink" json:"sink"`
	Directory  string `yaml:"directory" json:"directory"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
	StateFile  string `yaml:"state_file" json:"state_file"`
}

// StreamsConfig controls stream selection and record checking
type StreamsConfig struct {
	Selected    []string `yaml:"selected" json:"selected"`
	CheckSchema bool     `yaml:"check_schema" json:"check_schema"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://graph.facebook.com",
			Version:   "v19.0",
			Timeout:   30 * time.Second,
			UserAgent: "tap-instagram/1.0",
			MaxPages:  0, // 0 means no limit
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 200,
			BurstSize:         10,
			UsageThreshold:    90,
			UsageCooldown:     time.Minute,
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  5,
			InitialDelay: time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
		},
		Output: OutputConfig{
			Sink:       SinkStdout,
			Directory:  "./output",
			SQLitePath: "./tap-instagram.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv(EnvPrefix + "ACCESS_TOKEN"); token != "" {
		c.AccessToken = token
	}
	if account := os.Getenv(EnvPrefix + "ACCOUNT"); account != "" {
		c.Account = account
	}
	if version := os.Getenv(EnvPrefix + "API_VERSION"); version != "" {
		c.API.Version = version
	}
	if baseURL := os.Getenv(EnvPrefix + "BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}

	if rpm := os.Getenv(EnvPrefix + "REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			return fmt.Errorf("invalid %sREQUESTS_PER_MINUTE: %w", EnvPrefix, err)
		}
		c.RateLimit.RequestsPerMinute = val
	}
	if pages := os.Getenv(EnvPrefix + "MAX_PAGES"); pages != "" {
		val, err := strconv.Atoi(pages)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_PAGES: %w", EnvPrefix, err)
		}
		c.API.MaxPages = val
	}

	if sink := os.Getenv(EnvPrefix + "SINK"); sink != "" {
		c.Output.Sink = strings.ToLower(sink)
	}
	if dir := os.Getenv(EnvPrefix + "OUTPUT_DIR"); dir != "" {
		c.Output.Directory = dir
	}
	if selected := os.Getenv(EnvPrefix + "SELECTED_STREAMS"); selected != "" {
		c.Streams.Selected = splitList(selected)
	}

	if logLevel := os.Getenv(EnvPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// JSON is a subset of YAML, so Singer-style config.json files parse here too
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	secondsToDurations(doc.Content[0])
	if err := doc.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// durationKeys lists the duration settings that also accept a plain number of seconds
var durationKeys = map[string]map[string]bool{
	"api":        {"timeout": true},
	"rate_limit": {"usage_cooldown": true},
	"retry":      {"initial_delay": true, "max_delay": true},
}

// secondsToDurations rewrites integer duration values such as `"timeout": 30`
// into "30s" so they decode into time.Duration
func secondsToDurations(root *yaml.Node) {
	if root.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys, ok := durationKeys[root.Content[i].Value]
		section := root.Content[i+1]
		if !ok || section.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(section.Content); j += 2 {
			value := section.Content[j+1]
			if keys[section.Content[j].Value] && value.Kind == yaml.ScalarNode && value.Tag == "!!int" {
				value.Value += "s"
				value.Tag = "!!str"
			}
		}
	}
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"config.json",
		".tap-instagram.yaml",
		".tap-instagram.yml",
		filepath.Join(home, ".config", "tap-instagram", "config.yaml"),
		filepath.Join(home, ".config", "tap-instagram", "config.json"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks ranges and enumerations. The access token is checked by the tap itself.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api base url is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api timeout must be positive"))
	}
	if c.API.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.RateLimit.UsageThreshold < 0 || c.RateLimit.UsageThreshold > 100 {
		errs = append(errs, errors.New("usage threshold must be between 0 and 100"))
	}

	if c.Retry.MaxAttempts < 0 || c.Retry.MaxAttempts > 10 {
		errs = append(errs, errors.New("retry max attempts must be between 0 and 10"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	switch c.Output.Sink {
	case SinkStdout:
	case SinkJSONL:
		if c.Output.Directory == "" {
			errs = append(errs, errors.New("output directory is required for the jsonl sink"))
		}
	case SinkSQLite:
		if c.Output.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite path is required for the sqlite sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid sink %q", c.Output.Sink))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Masked returns a copy of the configuration with the access token hidden
func (c *Config) Masked() *Config {
	masked := *c
	masked.Streams.Selected = append([]string(nil), c.Streams.Selected...)
	if masked.AccessToken != "" {
		if len(masked.AccessToken) > 8 {
			masked.AccessToken = masked.AccessToken[:4] + "..." + masked.AccessToken[len(masked.AccessToken)-4:]
		} else {
			masked.AccessToken = "***"
		}
	}
	return &masked
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["access-token"].(string); ok && token != "" {
		c.AccessToken = token
	}
	if account, ok := flags["account"].(string); ok && account != "" {
		c.Account = account
	}
	if sink, ok := flags["sink"].(string); ok && sink != "" {
		c.Output.Sink = strings.ToLower(sink)
	}
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Output.Directory = dir
	}
	if path, ok := flags["sqlite-path"].(string); ok && path != "" {
		c.Output.SQLitePath = path
	}
	if stateFile, ok := flags["state-file"].(string); ok && stateFile != "" {
		c.Output.StateFile = stateFile
	}
	if selected, ok := flags["select"].([]string); ok && len(selected) > 0 {
		c.Streams.Selected = selected
	}
	if check, ok := flags["check-schema"].(bool); ok && check {
		c.Streams.CheckSchema = true
	}
	if pages, ok := flags["max-pages"].(int); ok && pages > 0 {
		c.API.MaxPages = pages
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tap-instagram.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
