package llmclient

import (
	"context"
	"fmt"
	"log"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (logging, hooks).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

type ctxKeyPhase struct{}

// WithPhase tags the context with the logical operation ("expand", "visualize").
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyPhase{}); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

// -------- Logging --------

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	l.log.Printf("LLM request (%s) via %s: %d bytes", PhaseFrom(ctx), l.next.Name(), len(req.Instruction))
	txt, err := l.next.GenerateStructured(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", PhaseFrom(ctx), err)
	}
	return txt, err
}

func (l *logging) GenerateImage(ctx context.Context, instruction string) (*ImageResponse, error) {
	l.log.Printf("LLM image request (%s) via %s: %d bytes", PhaseFrom(ctx), l.next.Name(), len(instruction))
	resp, err := l.next.GenerateImage(ctx, instruction)
	if err != nil {
		l.log.Printf("LLM image error (%s): %v", PhaseFrom(ctx), err)
	}
	return resp, err
}

// -------- Hooks --------

// PromptHook observes each call before and after it reaches the provider.
type PromptHook interface {
	Before(ctx context.Context, phase, instruction string)
	After(ctx context.Context, phase, summary string, err error)
}

// WithHook reports every call to hook. A nil hook is a no-op.
func WithHook(hook PromptHook) Middleware {
	return func(next Client) Client {
		if hook == nil {
			return next
		}
		return &hooked{next: next, hook: hook}
	}
}

type hooked struct {
	next Client
	hook PromptHook
}

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }

func (h *hooked) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	phase := PhaseFrom(ctx)
	h.hook.Before(ctx, phase, req.Instruction)
	txt, err := h.next.GenerateStructured(ctx, req)
	h.hook.After(ctx, phase, fmt.Sprintf("%d bytes of text", len(txt)), err)
	return txt, err
}

func (h *hooked) GenerateImage(ctx context.Context, instruction string) (*ImageResponse, error) {
	phase := PhaseFrom(ctx)
	h.hook.Before(ctx, phase, instruction)
	resp, err := h.next.GenerateImage(ctx, instruction)
	h.hook.After(ctx, phase, describeImageResponse(resp), err)
	return resp, err
}

func describeImageResponse(resp *ImageResponse) string {
	if resp == nil {
		return "no response"
	}
	parts, images := 0, 0
	for _, c := range resp.Candidates {
		for _, p := range c.Parts {
			parts++
			if p.InlineData != nil {
				images++
			}
		}
	}
	return fmt.Sprintf("%d candidates, %d parts, %d inline images", len(resp.Candidates), parts, images)
}
