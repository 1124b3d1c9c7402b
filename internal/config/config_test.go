package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"OPENAI_API_KEY", "OPENAI_API_KEY_PARAM", "OPENAI_MODEL", "OPENAI_BASE_URL",
	"OPENAI_TIMEOUT_MS", "MAX_MESSAGES", "LISTEN_ADDR", "LOG_LEVEL",
	"TRACING_ENABLED", "OTEL_SERVICE_NAME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campus-chat.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	require.Equal(t, 30*time.Second, cfg.OpenAITimeout)
	require.Zero(t, cfg.MaxMessages)
	require.False(t, cfg.HasAPIKeySource())
	require.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
openai_api_key = "sk-file"
openai_model = "gpt-file"
openai_timeout_ms = 1500
max_messages = 12
listen_addr = "127.0.0.1:9000"
log_level = "debug"
tracing_enabled = true
`)
	t.Setenv("OPENAI_MODEL", "gpt-env")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sk-file", cfg.OpenAIAPIKey)
	require.Equal(t, "gpt-env", cfg.OpenAIModel)
	require.Equal(t, 1500*time.Millisecond, cfg.OpenAITimeout)
	require.Equal(t, 12, cfg.MaxMessages)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	require.True(t, cfg.TracingEnabled)
	require.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	require.True(t, cfg.HasAPIKeySource())
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY_PARAM", "/campus-chat/openai-api-key")
	t.Setenv("OPENAI_TIMEOUT_MS", "0")
	t.Setenv("MAX_MESSAGES", "not-a-number")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/campus-chat/openai-api-key", cfg.OpenAIAPIKeyParam)
	require.Zero(t, cfg.OpenAITimeout)
	require.Zero(t, cfg.MaxMessages)
	require.True(t, cfg.TracingEnabled)
	require.True(t, cfg.HasAPIKeySource())
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorContains(t, err, "read")

	_, err = Load(writeFile(t, `openai_model = [`))
	require.ErrorContains(t, err, "parse")

	t.Setenv("LOG_LEVEL", "loud")
	_, err = Load("")
	require.ErrorContains(t, err, "invalid log level")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.OpenAIBaseURL = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.OpenAITimeout = -time.Second
	require.Error(t, cfg.Validate())
}
