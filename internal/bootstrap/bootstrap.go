// Package bootstrap assembles the model client, the two services and the
// trace sinks shared by the gateway and the command-line tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"nexus/internal/expansion"
	"nexus/internal/gateway/config"
	"nexus/internal/idea"
	llmclient "nexus/internal/llmClient"
	"nexus/internal/trace"
	"nexus/internal/visual"
)

type Runtime struct {
	Client     llmclient.Client
	Expander   *expansion.Service
	Visualizer *visual.Service
	Sink       trace.Sink
	Files      *trace.FileSink

	log     *log.Logger
	closers []func() error
}

// New builds the runtime from cfg. A failing S3 trace sink is logged and
// skipped; a failing model client is fatal.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = log.Default()
	}

	files := trace.NewFileSink(cfg.Trace.Dir)
	sinks := []trace.Sink{files}
	rt := &Runtime{Files: files, log: logger}

	if cfg.Trace.S3Enabled {
		s3, err := trace.NewS3Sink(cfg.Trace.S3, logger)
		if err != nil {
			logger.Printf("trace: s3 sink disabled: %v", err)
		} else {
			sinks = append(sinks, s3)
			rt.closers = append(rt.closers, s3.Close)
		}
	}
	rt.Sink = trace.Multi(sinks...)

	raw, err := llmclient.New(ctx, cfg.LLM.Settings())
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("llm client (%s) failed: %w", cfg.LLM.Provider, err)
	}
	rt.Client = llmclient.Wrap(raw,
		llmclient.WithLogging(logger),
		llmclient.WithHook(trace.Hook{Sink: rt.Sink}),
	)
	rt.closers = append(rt.closers, rt.Client.Close)

	rt.Expander = expansion.New(rt.Client,
		expansion.WithTemperature(cfg.LLM.Temperature),
		expansion.WithLogger(logger),
		expansion.WithTraceSink(rt.Sink),
	)
	rt.Visualizer = visual.New(rt.Client,
		visual.WithLogger(logger),
		visual.WithTraceSink(rt.Sink),
	)
	return rt, nil
}

// NewMachine returns a fresh idea cycle bound to sessionID.
func (r *Runtime) NewMachine(sessionID string) *idea.Machine {
	return idea.New(r.Expander, r.Visualizer,
		idea.WithLogger(r.log),
		idea.WithTraceSink(r.Sink),
		idea.WithSessionID(sessionID),
	)
}

// Close releases the client and flushes the sinks, newest first.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
