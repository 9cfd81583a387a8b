package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "nexus/internal/llmClient"
)

var nexusEnv = []string{
	"PORT", "APP_ENV", "NEXUS_PROVIDER", "GEMINI_API_KEY", "API_KEY", "NEXUS_TEXT_MODEL",
	"NEXUS_IMAGE_MODEL", "NEXUS_TEMPERATURE", "OPENAI_API_KEY", "OPENAI_BASE_URL",
	"NEXUS_TRACE_DIR", "TRACE_S3_ENDPOINT", "TRACE_S3_REGION", "TRACE_S3_ACCESS_KEY",
	"TRACE_S3_SECRET_KEY", "TRACE_S3_BUCKET", "TRACE_S3_USE_SSL", "MINIO_ROOT_USER",
	"MINIO_ROOT_PASSWORD", "NEXUS_SESSION_LIMIT", "NEXUS_SESSION_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range nexusEnv {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, llmclient.ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, DefaultTemperature, cfg.LLM.Temperature)
	assert.Equal(t, "tmp/trace", cfg.Trace.Dir)
	assert.False(t, cfg.Trace.S3Enabled)
	assert.Equal(t, DefaultSessionLimit, cfg.Sessions.Limit)
	assert.Equal(t, DefaultSessionTTL, cfg.Sessions.TTL)
}

func TestLoadGeminiKeyFallsBackToAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "legacy")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.LLM.APIKey)

	t.Setenv("GEMINI_API_KEY", "preferred")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "preferred", cfg.LLM.APIKey)
}

func TestLoadOpenAI(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXUS_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("GEMINI_API_KEY", "ignored")
	t.Setenv("NEXUS_TEXT_MODEL", "llama3")
	cfg, err := Load()
	require.NoError(t, err)

	s := cfg.LLM.Settings()
	assert.Equal(t, llmclient.ProviderOpenAI, s.Provider)
	assert.Equal(t, "sk-test", s.APIKey)
	assert.Equal(t, "http://localhost:11434/v1", s.BaseURL)
	assert.Equal(t, "llama3", s.TextModel)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("NEXUS_TEMPERATURE", "0.2")
	t.Setenv("NEXUS_SESSION_LIMIT", "8")
	t.Setenv("NEXUS_SESSION_TTL", "15m")
	t.Setenv("TRACE_S3_ENDPOINT", "minio:9000")
	t.Setenv("TRACE_S3_USE_SSL", "false")
	t.Setenv("MINIO_ROOT_USER", "root")
	t.Setenv("TRACE_S3_SECRET_KEY", "secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, float32(0.2), cfg.LLM.Temperature)
	assert.Equal(t, 8, cfg.Sessions.Limit)
	assert.Equal(t, 15*time.Minute, cfg.Sessions.TTL)
	assert.True(t, cfg.Trace.S3Enabled)
	assert.False(t, cfg.Trace.S3.UseSSL)
	assert.Equal(t, "root", cfg.Trace.S3.AccessKey)
	assert.Equal(t, "secret", cfg.Trace.S3.SecretKey)
	assert.Equal(t, "nexus-trace", cfg.Trace.S3.Bucket)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"NEXUS_PROVIDER":      "anthropic",
		"NEXUS_TEMPERATURE":   "hot",
		"NEXUS_SESSION_LIMIT": "0",
		"NEXUS_SESSION_TTL":   "forever",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestNormalizePort(t *testing.T) {
	assert.Equal(t, ":8081", NormalizePort("8081"))
	assert.Equal(t, ":8081", NormalizePort(" :8081 "))
	assert.Equal(t, "127.0.0.1:9000", NormalizePort("127.0.0.1:9000"))
	assert.Equal(t, "", NormalizePort(""))
}

func TestUseProviderRereadsCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)

	cfg.LLM.UseProvider(llmclient.ProviderOpenAI)
	assert.Equal(t, "o-key", cfg.LLM.APIKey)

	cfg.LLM.UseProvider(llmclient.ProviderFake)
	assert.Empty(t, cfg.LLM.APIKey)
}
