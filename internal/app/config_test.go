package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, "LocalAI Assistant", cfg.AppName)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "ollama", cfg.InferenceProvider)
	assert.Equal(t, "http://localhost:11434", cfg.BackendURL())
	assert.Equal(t, "dolphin-mistral", cfg.DefaultModel)
	assert.Equal(t, chat.DefaultSampling, cfg.Sampling())
	assert.Equal(t, 120*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, 120*time.Second, cfg.InferenceStreamTimeout, "streams inherit the total timeout")
	assert.Equal(t, 10*time.Second, cfg.InferenceConnectTimeout)
	assert.Equal(t, 20*time.Millisecond, cfg.FallbackWordDelay)
	assert.Equal(t, 30*time.Second, cfg.ModelCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.FallbackEnabled)
	assert.True(t, cfg.SerializeConversations)
	assert.Empty(t, cfg.RedisAddr)
	assert.False(t, cfg.OtelEnabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8500")
	t.Setenv("LOCALAI_PORT", "9000")
	t.Setenv("DEFAULT_MODEL", "codellama")
	t.Setenv("CORS_ORIGINS", " http://a.test , http://b.test/,")
	t.Setenv("FALLBACK_ENABLED", "false")
	t.Setenv("INFERENCE_TIMEOUT", "45s")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434/")

	cfg, err := LoadConfig(logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port, "prefixed name wins over the plain one")
	assert.Equal(t, "codellama", cfg.DefaultModel)
	assert.Equal(t, []string{"http://a.test", "http://b.test/"}, cfg.CORSOrigins)
	assert.False(t, cfg.FallbackEnabled)
	assert.Equal(t, 45*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, 45*time.Second, cfg.InferenceStreamTimeout)
	assert.Equal(t, "http://gpu-box:11434", cfg.OllamaBaseURL)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localai.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_model: nous-hermes\ndefault_top_k: 12\nshutdown_timeout: 3s\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DEFAULT_TOP_K", "20")

	cfg, err := LoadConfig(logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "nous-hermes", cfg.DefaultModel)
	assert.Equal(t, 20, cfg.DefaultTopK, "env beats the config file")
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := LoadConfig(logger.Nop())
	require.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"provider":    {"INFERENCE_PROVIDER": "llamafile"},
		"driver":      {"DB_DRIVER": "mysql"},
		"temperature": {"DEFAULT_TEMPERATURE": "3.5"},
		"top_k":       {"DEFAULT_TOP_K": "0"},
		"port":        {"PORT": "70000"},
		"ollama url":  {"OLLAMA_BASE_URL": "not a url"},
		"openai url":  {"INFERENCE_PROVIDER": "openai"},
		"sample":      {"OTEL_SAMPLE_RATIO": "1.5"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(logger.Nop())
			require.Error(t, err)
		})
	}
}

func TestLoadConfigOpenAIProvider(t *testing.T) {
	t.Setenv("INFERENCE_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1")

	cfg, err := LoadConfig(logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.InferenceProvider)
	assert.Equal(t, "http://localhost:8080/v1", cfg.BackendURL())
}

func TestOtelHeaderMap(t *testing.T) {
	cfg := Config{OtelHeaders: "x-api-key=abc, tenant = blue,broken,=empty"}
	assert.Equal(t, map[string]string{"x-api-key": "abc", "tenant": "blue"}, cfg.OtelHeaderMap())
	assert.Empty(t, Config{}.OtelHeaderMap())
}
