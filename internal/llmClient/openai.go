package llmclient

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"nexus/internal/schema"
)

const (
	DefaultOpenAITextModel  = "gpt-4o-mini"
	DefaultOpenAIImageModel = "dall-e-3"
)

// OpenAIClient serves both capabilities through the openai-go SDK. Any
// OpenAI-compatible endpoint works via baseURL.
type OpenAIClient struct {
	cli        openai.Client
	textModel  string
	imageModel string
}

// NewOpenAIClient builds a client for apiKey. An empty baseURL uses the OpenAI default.
func NewOpenAIClient(apiKey, baseURL, textModel, imageModel string) (*OpenAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key missing; set OPENAI_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if u := strings.TrimSpace(baseURL); u != "" {
		opts = append(opts, option.WithBaseURL(u))
	}
	return &OpenAIClient{
		cli:        openai.NewClient(opts...),
		textModel:  firstNonEmpty(textModel, DefaultOpenAITextModel),
		imageModel: firstNonEmpty(imageModel, DefaultOpenAIImageModel),
	}, nil
}

func (o *OpenAIClient) Name() string { return "OpenAI:" + o.textModel }
func (o *OpenAIClient) Close() error { return nil }

func (o *OpenAIClient) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.textModel),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(req.Instruction)},
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "idea_expansion",
					Schema: schema.JSONSchema(req.Schema),
					Strict: openai.Bool(true),
				},
			},
		}
	}
	resp, err := o.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	txt := resp.Choices[0].Message.Content
	if strings.TrimSpace(txt) == "" {
		return "", ErrEmptyResponse
	}
	return txt, nil
}

// GenerateImage maps the b64 image payload onto a single candidate part.
func (o *OpenAIClient) GenerateImage(ctx context.Context, instruction string) (*ImageResponse, error) {
	params := openai.ImageGenerateParams{
		Prompt: instruction,
		Model:  openai.ImageModel(o.imageModel),
		N:      openai.Int(1),
	}
	if strings.HasPrefix(o.imageModel, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}
	resp, err := o.cli.Images.Generate(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	out := &ImageResponse{}
	for _, img := range resp.Data {
		cand := Candidate{}
		if img.B64JSON != "" {
			data, err := base64.StdEncoding.DecodeString(img.B64JSON)
			if err != nil {
				return nil, err
			}
			cand.Parts = append(cand.Parts, Part{InlineData: &InlineData{MIMEType: "image/png", Data: data}})
		}
		if img.RevisedPrompt != "" {
			cand.Parts = append(cand.Parts, Part{Text: img.RevisedPrompt})
		}
		out.Candidates = append(out.Candidates, cand)
	}
	return out, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return &UpstreamError{Provider: "openai", StatusCode: apiErr.StatusCode, Err: err}
	}
	return err
}
