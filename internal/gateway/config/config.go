package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	llmclient "nexus/internal/llmClient"
	"nexus/internal/trace"
)

const (
	DefaultPort         = ":8081"
	DefaultTemperature  = float32(0.7)
	DefaultSessionLimit = 256
	DefaultSessionTTL   = 2 * time.Hour
)

type Config struct {
	Port     string
	Env      string
	LLM      LLMConfig
	Trace    TraceConfig
	Sessions SessionConfig
}

type LLMConfig struct {
	Provider    llmclient.Provider
	APIKey      string
	BaseURL     string
	TextModel   string
	ImageModel  string
	Temperature float32
}

// Settings returns the provider selection in the form llmclient.New expects.
func (c LLMConfig) Settings() llmclient.Settings {
	return llmclient.Settings{
		Provider:   c.Provider,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		TextModel:  c.TextModel,
		ImageModel: c.ImageModel,
	}
}

type TraceConfig struct {
	Dir       string
	S3Enabled bool
	S3        trace.S3Config
}

type SessionConfig struct {
	Limit int
	TTL   time.Duration
}

// Load reads .env (if present) and then the process environment. Command-line
// flags are applied by the caller.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}
	sessions, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:     NormalizePort(firstNonEmpty(os.Getenv("PORT"), DefaultPort)),
		Env:      env,
		LLM:      llm,
		Trace:    loadTraceConfig(),
		Sessions: sessions,
	}, nil
}

// NormalizePort accepts "8081" or ":8081".
func NormalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func loadLLMConfig() (LLMConfig, error) {
	provider, err := llmclient.ParseProvider(os.Getenv("NEXUS_PROVIDER"))
	if err != nil {
		return LLMConfig{}, fmt.Errorf("NEXUS_PROVIDER: %w", err)
	}
	temp := DefaultTemperature
	if raw := strings.TrimSpace(os.Getenv("NEXUS_TEMPERATURE")); raw != "" {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil || v < 0 || v > 2 {
			return LLMConfig{}, fmt.Errorf("NEXUS_TEMPERATURE: invalid value %q", raw)
		}
		temp = float32(v)
	}

	cfg := LLMConfig{
		TextModel:   strings.TrimSpace(os.Getenv("NEXUS_TEXT_MODEL")),
		ImageModel:  strings.TrimSpace(os.Getenv("NEXUS_IMAGE_MODEL")),
		Temperature: temp,
	}
	cfg.UseProvider(provider)
	return cfg, nil
}

// UseProvider switches provider and re-reads that provider's credentials
// from the environment.
func (c *LLMConfig) UseProvider(p llmclient.Provider) {
	c.Provider = p
	c.APIKey, c.BaseURL = "", ""
	switch p {
	case llmclient.ProviderOpenAI:
		c.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		c.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	case llmclient.ProviderGemini:
		c.APIKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("API_KEY"))
	}
}

func loadTraceConfig() TraceConfig {
	endpoint := strings.TrimSpace(os.Getenv("TRACE_S3_ENDPOINT"))
	return TraceConfig{
		Dir:       firstNonEmpty(os.Getenv("NEXUS_TRACE_DIR"), trace.DefaultDir()),
		S3Enabled: endpoint != "",
		S3: trace.S3Config{
			Endpoint:  endpoint,
			Region:    firstNonEmpty(os.Getenv("TRACE_S3_REGION"), "us-east-1"),
			AccessKey: firstNonEmpty(os.Getenv("TRACE_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(os.Getenv("TRACE_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(os.Getenv("TRACE_S3_BUCKET"), "nexus-trace"),
			UseSSL:    resolveUseSSL(os.Getenv("TRACE_S3_USE_SSL")),
		},
	}
}

func resolveUseSSL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func loadSessionConfig() (SessionConfig, error) {
	cfg := SessionConfig{Limit: DefaultSessionLimit, TTL: DefaultSessionTTL}
	if raw := strings.TrimSpace(os.Getenv("NEXUS_SESSION_LIMIT")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("NEXUS_SESSION_LIMIT: invalid value %q", raw)
		}
		cfg.Limit = n
	}
	if raw := strings.TrimSpace(os.Getenv("NEXUS_SESSION_TTL")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("NEXUS_SESSION_TTL: invalid value %q", raw)
		}
		cfg.TTL = d
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
