// Package config builds the process configuration once at startup. Nothing
// downstream reads the environment directly.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultTimeout     = 30 * time.Second
	DefaultListenAddr  = ":8080"
	DefaultServiceName = "campus-chat"
)

// Config holds the chat proxy configuration.
type Config struct {
	// OpenAI
	OpenAIAPIKey      string
	OpenAIAPIKeyParam string
	OpenAIModel       string
	OpenAIBaseURL     string
	OpenAITimeout     time.Duration
	// MaxMessages optionally caps the forwarded history to the most recent
	// turns. Zero forwards everything the caller sent.
	MaxMessages       int

	// Local server
	ListenAddr string

	// Observability
	LogLevel       string
	TracingEnabled bool
	ServiceName    string
}

// fileConfig is the on-disk TOML shape.
type fileConfig struct {
	OpenAIAPIKey      string `toml:"openai_api_key"`
	OpenAIAPIKeyParam string `toml:"openai_api_key_param"`
	OpenAIModel       string `toml:"openai_model"`
	OpenAIBaseURL     string `toml:"openai_base_url"`
	OpenAITimeoutMS   *int   `toml:"openai_timeout_ms"`
	MaxMessages       int    `toml:"max_messages"`
	ListenAddr        string `toml:"listen_addr"`
	LogLevel          string `toml:"log_level"`
	TracingEnabled    *bool  `toml:"tracing_enabled"`
	ServiceName       string `toml:"service_name"`
}

func Default() Config {
	return Config{
		OpenAIModel:   DefaultModel,
		OpenAIBaseURL: DefaultBaseURL,
		OpenAITimeout: DefaultTimeout,
		ListenAddr:    DefaultListenAddr,
		LogLevel:      "info",
		ServiceName:   DefaultServiceName,
	}
}

// Load applies defaults, then the TOML file at path (skipped when path is
// empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	setString(&c.OpenAIAPIKey, fc.OpenAIAPIKey)
	setString(&c.OpenAIAPIKeyParam, fc.OpenAIAPIKeyParam)
	setString(&c.OpenAIModel, fc.OpenAIModel)
	setString(&c.OpenAIBaseURL, fc.OpenAIBaseURL)
	setString(&c.ListenAddr, fc.ListenAddr)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.ServiceName, fc.ServiceName)
	if fc.OpenAITimeoutMS != nil {
		c.OpenAITimeout = time.Duration(*fc.OpenAITimeoutMS) * time.Millisecond
	}
	if fc.MaxMessages > 0 {
		c.MaxMessages = fc.MaxMessages
	}
	if fc.TracingEnabled != nil {
		c.TracingEnabled = *fc.TracingEnabled
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	setString(&c.OpenAIAPIKey, getenv("OPENAI_API_KEY"))
	setString(&c.OpenAIAPIKeyParam, getenv("OPENAI_API_KEY_PARAM"))
	setString(&c.OpenAIModel, getenv("OPENAI_MODEL"))
	setString(&c.OpenAIBaseURL, getenv("OPENAI_BASE_URL"))
	setString(&c.ListenAddr, getenv("LISTEN_ADDR"))
	setString(&c.LogLevel, getenv("LOG_LEVEL"))
	setString(&c.ServiceName, getenv("OTEL_SERVICE_NAME"))
	if ms, ok := envInt(getenv, "OPENAI_TIMEOUT_MS"); ok {
		c.OpenAITimeout = time.Duration(ms) * time.Millisecond
	}
	if n, ok := envInt(getenv, "MAX_MESSAGES"); ok && n > 0 {
		c.MaxMessages = n
	}
	if v := strings.TrimSpace(getenv("TRACING_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.TracingEnabled = b
		}
	}
}

// Validate rejects values the process cannot run with. A missing API key is
// not one of them: requests report it as a configuration error instead.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OpenAIBaseURL) == "" {
		return fmt.Errorf("config: openai base URL must not be empty")
	}
	if c.OpenAITimeout < 0 {
		return fmt.Errorf("config: openai timeout must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// HasAPIKeySource reports whether a credential was given directly or by
// parameter name.
func (c Config) HasAPIKeySource() bool {
	return strings.TrimSpace(c.OpenAIAPIKey) != "" || strings.TrimSpace(c.OpenAIAPIKeyParam) != ""
}

// SlogLevel returns the configured log level; Validate guarantees it parses.
func (c Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid log level %q", raw)
	}
	return level, nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func envInt(getenv func(string) string, key string) (int, bool) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
