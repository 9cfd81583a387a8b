package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"nexus/internal/bootstrap"
	"nexus/internal/gateway/config"
	"nexus/internal/gateway/handler"
	"nexus/internal/gateway/server"
	"nexus/internal/gateway/session"
)

type App struct {
	server   *server.Server
	runtime  *bootstrap.Runtime
	sessions *handler.SessionHandler
	handler  http.Handler
}

// New loads the configuration and wires the gateway. A non-empty port
// overrides PORT.
func New(port string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if p := config.NormalizePort(port); p != "" {
		cfg.Port = p
	}
	return NewWithConfig(context.Background(), cfg, log.Default())
}

func NewWithConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	// Dependencies
	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build runtime: %w", err)
	}
	sessions := session.NewRegistry(cfg.Sessions.Limit, cfg.Sessions.TTL, rt.NewMachine, logger)

	sessionHandler := handler.NewSessionHandler(sessions, logger)
	traceHandler := handler.NewTraceHandler(rt.Files, rt.Sink)
	healthHandler := handler.NewHealthHandler(sessions, rt.Client.Name())

	// Routing & Server
	mux := server.NewMux(sessionHandler, traceHandler, healthHandler)
	srv := server.New(cfg.Port, mux)

	return &App{
		server:   srv,
		runtime:  rt,
		sessions: sessionHandler,
		handler:  mux,
	}, nil
}

// Handler exposes the routed handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops the server, waits for model calls started by streams, then
// closes the runtime so no trace event reaches a closed sink.
func (a *App) Shutdown(ctx context.Context) error {
	srvErr := a.server.Shutdown(ctx)
	waitErr := a.sessions.Wait(ctx)
	if waitErr != nil {
		waitErr = fmt.Errorf("wait for detached model calls: %w", waitErr)
	}
	return errors.Join(srvErr, waitErr, a.runtime.Close())
}
