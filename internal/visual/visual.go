// Package visual renders an expansion into an image artifact. It is
// best-effort: every fault degrades to types.FallbackImage.
package visual

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	llmclient "nexus/internal/llmClient"
	"nexus/internal/trace"
	"nexus/internal/types"
)

const Phase = "visualize"

// Fault describes why a visualization fell back. It is logged and traced,
// never returned.
type Fault struct {
	Reason string
	Err    error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return "visualization fault: " + f.Reason
	}
	return fmt.Sprintf("visualization fault: %s: %v", f.Reason, f.Err)
}
func (f *Fault) Unwrap() error { return f.Err }

type Service struct {
	model llmclient.ImageGenerator
	log   *log.Logger
	sink  trace.Sink
}

type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}
func WithTraceSink(sink trace.Sink) Option { return func(s *Service) { s.sink = sink } }

func New(model llmclient.ImageGenerator, opts ...Option) *Service {
	s := &Service{model: model, log: log.Default(), sink: trace.Discard}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func Prompt(exp types.Expansion) string {
	return fmt.Sprintf(`A futuristic, high-quality, professional concept art visualization for a project named "%s".
Context: %s.
Style: Minimalist, modern, tech-forward, cinematic lighting, 8k resolution.`, exp.Title, exp.Description)
}

// Visualize never fails; faults (including panics inside the generator)
// become types.FallbackImage.
func (s *Service) Visualize(ctx context.Context, exp types.Expansion) (art types.ImageArtifact) {
	ctx = llmclient.WithPhase(ctx, Phase)
	defer func() {
		if r := recover(); r != nil {
			art = s.fallback(ctx, &Fault{Reason: fmt.Sprintf("panic: %v", r)})
		}
	}()
	if s.model == nil {
		return s.fallback(ctx, &Fault{Reason: "no image model configured"})
	}
	resp, err := s.model.GenerateImage(ctx, Prompt(exp))
	if err != nil {
		return s.fallback(ctx, &Fault{Reason: "generate image", Err: err})
	}
	if a, ok := Extract(resp); ok {
		return a
	}
	return s.fallback(ctx, &Fault{Reason: "no image data found in response"})
}

// Extract returns the first inline image part, scanning candidates and parts in order.
func Extract(resp *llmclient.ImageResponse) (types.ImageArtifact, bool) {
	if resp == nil {
		return "", false
	}
	for _, c := range resp.Candidates {
		for _, p := range c.Parts {
			if p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			mime := strings.TrimSpace(p.InlineData.MIMEType)
			if mime == "" {
				continue
			}
			return DataURI(mime, p.InlineData.Data), true
		}
	}
	return "", false
}

func DataURI(mime string, data []byte) types.ImageArtifact {
	return types.ImageArtifact("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data))
}

func (s *Service) fallback(ctx context.Context, f *Fault) types.ImageArtifact {
	s.log.Printf("Error generating image: %v", f)
	trace.Record(ctx, s.sink, "visual", "visualize.fallback", map[string]any{"cause": f.Error()})
	return types.FallbackImage
}
