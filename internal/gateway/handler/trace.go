package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"nexus/internal/trace"
)

type TraceHandler struct {
	files *trace.FileSink
	sink  trace.Sink
}

// NewTraceHandler reads back events from files and records client-side
// events into sink.
func NewTraceHandler(files *trace.FileSink, sink trace.Sink) *TraceHandler {
	return &TraceHandler{files: files, sink: sink}
}

func (h *TraceHandler) HandleFrontendTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		Timestamp string         `json:"timestamp"`
		SessionID string         `json:"session_id"`
		Stage     string         `json:"stage"`
		Level     string         `json:"level"`
		Fields    map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	sessionID := strings.TrimSpace(in.SessionID)
	stage := strings.TrimSpace(in.Stage)
	if sessionID == "" || stage == "" {
		http.Error(w, "session_id and stage are required", http.StatusBadRequest)
		return
	}
	fields := map[string]any{}
	for k, v := range in.Fields {
		fields[k] = v
	}
	if lvl := strings.TrimSpace(in.Level); lvl != "" {
		fields["level"] = lvl
	}
	if ts := strings.TrimSpace(in.Timestamp); ts != "" {
		fields["frontend_timestamp"] = ts
	}
	ctx := trace.WithSession(r.Context(), sessionID)
	trace.Record(ctx, h.sink, "frontend", stage, fields)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *TraceHandler) HandleSessionTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	if h.files == nil {
		http.Error(w, "trace file sink disabled", http.StatusNotFound)
		return
	}
	events, err := h.files.Read(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []trace.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"events":     events,
	})
}
