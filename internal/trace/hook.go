package trace

import "context"

// Hook records model calls; it satisfies llmclient.PromptHook.
type Hook struct {
	Sink Sink
}

func (h Hook) Before(ctx context.Context, phase, instruction string) {
	Record(ctx, h.Sink, "llm", phase+".request", map[string]any{
		"instruction_bytes": len(instruction),
	})
}

func (h Hook) After(ctx context.Context, phase, summary string, err error) {
	fields := map[string]any{"summary": summary}
	stage := phase + ".response"
	if err != nil {
		fields["error"] = err.Error()
		stage = phase + ".error"
	}
	Record(ctx, h.Sink, "llm", stage, fields)
}
