package llmclient

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"

	"nexus/internal/schema"
)

const (
	DefaultGeminiTextModel  = "gemini-2.5-flash"
	DefaultGeminiImageModel = "gemini-2.5-flash-image"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (logging, hooks) are applied via Middleware.
type GeminiClient struct {
	cli        *genai.Client
	textModel  string
	imageModel string
}

// NewGeminiClient connects to the Gemini API with apiKey.
func NewGeminiClient(ctx context.Context, apiKey, textModel, imageModel string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		cli:        cli,
		textModel:  firstNonEmpty(textModel, DefaultGeminiTextModel),
		imageModel: firstNonEmpty(imageModel, DefaultGeminiImageModel),
	}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.textModel }
func (g *GeminiClient) Close() error { return nil }

// GenerateStructured asks for application/json constrained by the request
// schema and returns the concatenated text parts of the first candidate.
func (g *GeminiClient) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(req.Temperature),
	}
	if req.Schema != nil {
		cfg.ResponseSchema = GenaiSchema(req.Schema)
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.textModel, genai.Text(req.Instruction), cfg)
	if err != nil {
		return "", classifyGenaiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// GenerateImage calls the image model and copies every candidate part.
func (g *GeminiClient) GenerateImage(ctx context.Context, instruction string) (*ImageResponse, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.imageModel, genai.Text(instruction), nil)
	if err != nil {
		return nil, classifyGenaiError(err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	out := &ImageResponse{}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			out.Candidates = append(out.Candidates, Candidate{})
			continue
		}
		cand := Candidate{}
		for _, p := range c.Content.Parts {
			if p == nil {
				continue
			}
			part := Part{Text: p.Text}
			if p.InlineData != nil {
				part.InlineData = &InlineData{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
			}
			cand.Parts = append(cand.Parts, part)
		}
		out.Candidates = append(out.Candidates, cand)
	}
	return out, nil
}

// GenaiSchema converts the provider-neutral descriptor into a genai schema.
func GenaiSchema(n *schema.Node) *genai.Schema {
	if n == nil {
		return nil
	}
	out := &genai.Schema{Description: n.Description}
	switch n.Type {
	case schema.TypeObject:
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(n.Properties))
		for _, p := range n.Properties {
			out.Properties[p.Name] = GenaiSchema(p.Node)
			out.PropertyOrdering = append(out.PropertyOrdering, p.Name)
		}
		out.Required = append([]string(nil), n.Required...)
	case schema.TypeArray:
		out.Type = genai.TypeArray
		out.Items = GenaiSchema(n.Items)
	default:
		out.Type = genai.TypeString
	}
	return out
}

func classifyGenaiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Provider: "gemini", StatusCode: apiErr.Code, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &UpstreamError{Provider: "gemini", StatusCode: apiErrPtr.Code, Err: err}
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
