// Package llmclient wraps the text and image model providers behind one
// client interface, plus logging and hook middleware.
package llmclient

import (
	"context"
	"errors"
	"fmt"

	"nexus/internal/schema"
)

// ErrEmptyResponse means the provider answered without usable content.
var ErrEmptyResponse = errors.New("empty response from model")

// UpstreamError is a non-success answer from the provider, as opposed to a
// transport failure that never reached it.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream status %d: %v", e.Provider, e.StatusCode, e.Err)
}
func (e *UpstreamError) Unwrap() error { return e.Err }

// StructuredRequest asks for JSON constrained to Schema.
type StructuredRequest struct {
	Instruction string
	Schema      *schema.Node
	Temperature float32
}

type InlineData struct {
	MIMEType string
	Data     []byte
}

type Part struct {
	Text       string
	InlineData *InlineData
}

type Candidate struct {
	Parts []Part
}

// ImageResponse mirrors the candidates/parts shape of generative image APIs.
type ImageResponse struct {
	Candidates []Candidate
}

// TextGenerator produces JSON text for a structured request.
type TextGenerator interface {
	GenerateStructured(ctx context.Context, req StructuredRequest) (string, error)
}

// ImageGenerator produces an image for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, instruction string) (*ImageResponse, error)
}

// Client is one configured provider serving both capabilities.
type Client interface {
	Name() string
	TextGenerator
	ImageGenerator
	Close() error
}
