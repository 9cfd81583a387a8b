package server

import (
	"net/http"

	"nexus/internal/gateway/handler"
	"nexus/internal/gateway/middleware"
)

func NewMux(
	sessionHandler *handler.SessionHandler,
	traceHandler *handler.TraceHandler,
	healthHandler *handler.HealthHandler,
) http.Handler {
	mux := http.NewServeMux()

	// Session API
	mux.HandleFunc("POST /api/sessions", sessionHandler.HandleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", sessionHandler.HandleGet)
	mux.HandleFunc("POST /api/sessions/{id}/expand", sessionHandler.HandleExpand)
	mux.HandleFunc("POST /api/sessions/{id}/visualize", sessionHandler.HandleVisualize)
	mux.HandleFunc("POST /api/sessions/{id}/reset", sessionHandler.HandleReset)
	mux.HandleFunc("GET /api/sessions/{id}/report", sessionHandler.HandleReport)
	mux.HandleFunc("GET /api/sessions/{id}/ws", sessionHandler.HandleStream)

	// Debug Handlers
	mux.HandleFunc("/debug/frontend-trace", traceHandler.HandleFrontendTrace)
	mux.HandleFunc("/debug/trace", traceHandler.HandleSessionTrace)

	mux.HandleFunc("GET /healthz", healthHandler.HandleHealth)

	// Middleware
	return middleware.CORS(mux)
}
