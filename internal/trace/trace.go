// Package trace records diagnostic events (model calls, failure causes) for
// a session. Nothing here is ever shown to the end user.
package trace

import (
	"context"
	"strings"
	"time"
)

// Event is a structured session trace event persisted as JSON.
type Event struct {
	Timestamp string         `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Source    string         `json:"source"`
	Stage     string         `json:"stage"`
	Fields    map[string]any `json:"fields,omitempty"`
}

type Sink interface {
	Append(ctx context.Context, ev Event)
}

// NewEvent stamps the event with the current time and the session in ctx.
func NewEvent(ctx context.Context, source, stage string, fields map[string]any) Event {
	ev := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: SessionFrom(ctx),
		Source:    strings.TrimSpace(source),
		Stage:     strings.TrimSpace(stage),
	}
	if len(fields) > 0 {
		ev.Fields = fields
	}
	return ev
}

// Record is shorthand for sink.Append(ctx, NewEvent(...)) that tolerates a nil sink.
func Record(ctx context.Context, sink Sink, source, stage string, fields map[string]any) {
	if sink == nil {
		return
	}
	sink.Append(ctx, NewEvent(ctx, source, stage, fields))
}

type discard struct{}

func (discard) Append(context.Context, Event) {}

// Discard drops every event.
var Discard Sink = discard{}

type multi []Sink

func (m multi) Append(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Append(ctx, ev)
	}
}

// Multi fans events out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return Discard
	case 1:
		return out[0]
	}
	return out
}

type ctxKeySession struct{}

func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, strings.TrimSpace(sessionID))
}

func SessionFrom(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if v, ok := ctx.Value(ctxKeySession{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
