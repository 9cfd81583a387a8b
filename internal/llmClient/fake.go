package llmclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"unicode"
)

// 1x1 grey PNG.
const fakePNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// FakeClient returns deterministic payloads for offline runs and tests.
type FakeClient struct{}

// NewFakeClient returns a client that never touches the network.
func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	seed := quotedSeed(req.Instruction)
	name := titleFromSeed(seed)
	obj := map[string]any{
		"title":       name,
		"tagline":     "The simplest way to " + strings.ToLower(seed),
		"description": name + " turns \"" + seed + "\" into a focused product. It starts narrow and expands with demand.",
		"targetAudience": []string{
			"Early adopters",
			"Small businesses",
			"Busy professionals",
		},
		"keyFeatures": []string{
			"One-tap onboarding",
			"Real-time status",
			"Transparent pricing",
			"Ratings and reviews",
		},
		"potentialChallenges": []string{
			"Customer acquisition cost",
			"Trust and safety",
			"Regulatory overhead",
		},
		"pivotOptions": []map[string]string{
			{"name": name + " Pro", "description": "A premium tier for power users."},
			{"name": name + " for Teams", "description": "A B2B offering for organisations."},
			{"name": name + " Marketplace", "description": "Open the platform to third-party providers."},
		},
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (f *FakeClient) GenerateImage(ctx context.Context, instruction string) (*ImageResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _ := base64.StdEncoding.DecodeString(fakePNG)
	return &ImageResponse{Candidates: []Candidate{{Parts: []Part{
		{Text: "fake render"},
		{InlineData: &InlineData{MIMEType: "image/png", Data: data}},
	}}}}, nil
}

func quotedSeed(instruction string) string {
	const marker = `Raw Idea: "`
	i := strings.Index(instruction, marker)
	if i < 0 {
		return strings.TrimSpace(instruction)
	}
	rest := instruction[i+len(marker):]
	if j := strings.LastIndex(rest, `"`); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func titleFromSeed(seed string) string {
	words := strings.Fields(seed)
	if len(words) == 0 {
		return "Untitled"
	}
	if len(words) > 3 {
		words = words[:3]
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, "")
}
