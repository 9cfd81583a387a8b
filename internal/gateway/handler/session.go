package handler

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"nexus/internal/gateway/session"
	"nexus/internal/report"
)

// SessionHandler serves the REST surface over the session registry.
type SessionHandler struct {
	sessions *session.Registry
	log      *log.Logger

	// detached tracks model calls started from a stream that outlive it.
	detached sync.WaitGroup
}

func NewSessionHandler(sessions *session.Registry, logger *log.Logger) *SessionHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &SessionHandler{sessions: sessions, log: logger}
}

// detach runs fn in its own goroutine and tracks it for Wait.
func (h *SessionHandler) detach(fn func()) {
	h.detached.Add(1)
	go func() {
		defer h.detached.Done()
		fn()
	}()
}

// Wait blocks until detached model calls finish or ctx is done.
func (h *SessionHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.detached.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := pathID(r)
	if id == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return nil, false
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	respondSession(w, http.StatusCreated, s, nil)
}

func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondSession(w, http.StatusOK, s, nil)
}

// HandleExpand blocks until the expansion resolves. The cycle keeps running
// if the client goes away so that other observers see a consistent state.
func (h *SessionHandler) HandleExpand(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var in struct {
		Seed string `json:"seed"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(in.Seed) == "" {
		http.Error(w, "seed is required", http.StatusBadRequest)
		return
	}
	accepted := s.Machine.Submit(context.WithoutCancel(r.Context()), in.Seed)
	respondSession(w, http.StatusOK, s, boolPtr(accepted))
}

func (h *SessionHandler) HandleVisualize(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	accepted := s.Machine.GenerateVisual(context.WithoutCancel(r.Context()))
	respondSession(w, http.StatusOK, s, boolPtr(accepted))
}

func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	s.Machine.Reset()
	respondSession(w, http.StatusOK, s, boolPtr(true))
}

func (h *SessionHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	st := s.Machine.State()
	if st.Expansion == nil {
		http.Error(w, "no expansion yet", http.StatusConflict)
		return
	}
	switch format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format {
	case "", "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, report.Markdown(*st.Expansion))
	case "html":
		out, err := report.HTML(*st.Expansion)
		if err != nil {
			h.log.Printf("report render failed for session %s: %v", s.ID, err)
			http.Error(w, "report render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, out)
	default:
		http.Error(w, "unsupported format: "+format, http.StatusBadRequest)
	}
}

type HealthHandler struct {
	sessions *session.Registry
	provider string
}

func NewHealthHandler(sessions *session.Registry, provider string) *HealthHandler {
	return &HealthHandler{sessions: sessions, provider: provider}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"provider": h.provider,
		"sessions": h.sessions.Len(),
	})
}
