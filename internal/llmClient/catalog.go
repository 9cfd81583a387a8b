package llmclient

import (
	"context"
	"fmt"
	"strings"
)

// Provider names a model backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderFake   Provider = "fake"
)

// Settings selects and configures one provider.
type Settings struct {
	Provider   Provider
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
}

// ParseProvider normalizes raw. Empty selects Gemini.
func ParseProvider(raw string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return ProviderGemini, nil
	case ProviderGemini, ProviderOpenAI, ProviderFake:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q (want gemini, openai or fake)", raw)
	}
}

// New builds the raw provider client; callers add middleware with Wrap.
func New(ctx context.Context, s Settings) (Client, error) {
	switch s.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, s.APIKey, s.TextModel, s.ImageModel)
	case ProviderOpenAI:
		return NewOpenAIClient(s.APIKey, s.BaseURL, s.TextModel, s.ImageModel)
	case ProviderFake:
		return NewFakeClient(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", s.Provider)
	}
}
