// Package expansion turns a free-text seed into a validated types.Expansion
// with a single call to a structured text model.
package expansion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	llmclient "nexus/internal/llmClient"
	"nexus/internal/schema"
	"nexus/internal/trace"
	"nexus/internal/types"
	"nexus/internal/util/jsonutil"
)

const (
	Phase              = "expand"
	DefaultTemperature = float32(0.7)
)

type Kind string

const (
	KindTransport Kind = "transport"
	KindUpstream  Kind = "upstream"
	KindEmpty     Kind = "empty"
	KindParse     Kind = "parse"
	KindSchema    Kind = "schema"
)

// Error is the single failure type of Expand.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("expansion %s error: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

type Service struct {
	model       llmclient.TextGenerator
	schema      *schema.Node
	temperature float32
	log         *log.Logger
	sink        trace.Sink
}

type Option func(*Service)

func WithTemperature(t float32) Option { return func(s *Service) { s.temperature = t } }
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}
func WithTraceSink(sink trace.Sink) Option { return func(s *Service) { s.sink = sink } }

func New(model llmclient.TextGenerator, opts ...Option) *Service {
	s := &Service{
		model:       model,
		schema:      schema.Expansion(),
		temperature: DefaultTemperature,
		log:         log.Default(),
		sink:        trace.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prompt embeds the seed verbatim in the strategist instruction.
func Prompt(seed string) string {
	return `Act as a senior product strategist. Analyze the following raw idea and expand it into a fully fleshed-out concept.

Raw Idea: "` + seed + `"

Provide a structured analysis including a name, tagline, summary, audience, features, challenges, and pivot options.`
}

// Expand makes exactly one model call. It returns either a fully valid
// expansion or an *Error; never a partially populated value.
func (s *Service) Expand(ctx context.Context, seed string) (types.Expansion, error) {
	ctx = llmclient.WithPhase(ctx, Phase)
	txt, err := s.model.GenerateStructured(ctx, llmclient.StructuredRequest{
		Instruction: Prompt(seed),
		Schema:      s.schema,
		Temperature: s.temperature,
	})
	if err != nil {
		return types.Expansion{}, s.fail(ctx, classify(err))
	}
	exp, err := Parse(s.schema, txt)
	if err != nil {
		return types.Expansion{}, s.fail(ctx, err)
	}
	return exp, nil
}

// Parse decodes model text into an expansion after checking it against n.
func Parse(n *schema.Node, text string) (types.Expansion, error) {
	raw := jsonutil.ExtractObject(text)
	if len(raw) == 0 {
		return types.Expansion{}, &Error{Kind: KindEmpty, Err: llmclient.ErrEmptyResponse}
	}
	if err := schema.Validate(n, raw); err != nil {
		kind := KindSchema
		if errors.Is(err, schema.ErrNotJSON) {
			kind = KindParse
		}
		return types.Expansion{}, &Error{Kind: kind, Err: err}
	}
	var exp types.Expansion
	if err := json.Unmarshal(raw, &exp); err != nil {
		return types.Expansion{}, &Error{Kind: KindParse, Err: err}
	}
	return exp, nil
}

func classify(err error) *Error {
	var upstream *llmclient.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return &Error{Kind: KindUpstream, Err: err}
	case errors.Is(err, llmclient.ErrEmptyResponse):
		return &Error{Kind: KindEmpty, Err: err}
	default:
		return &Error{Kind: KindTransport, Err: err}
	}
}

func (s *Service) fail(ctx context.Context, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindParse, Err: err}
	}
	s.log.Printf("Error expanding idea (%s): %v", e.Kind, e.Err)
	trace.Record(ctx, s.sink, "expansion", "expand.failed", map[string]any{
		"kind":  string(e.Kind),
		"cause": e.Err.Error(),
	})
	return e
}
