package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"nexus/internal/gateway/session"
	"nexus/internal/types"
)

// StateView is the wire form of a session's state.
type StateView struct {
	types.State
	ImageIsFallback bool `json:"imageIsFallback"`
}

func NewStateView(st types.State) StateView {
	return StateView{State: st, ImageIsFallback: st.Image.IsFallback()}
}

type sessionResponse struct {
	SessionID string    `json:"sessionId"`
	Accepted  *bool     `json:"accepted,omitempty"`
	State     StateView `json:"state"`
}

func respondSession(w http.ResponseWriter, status int, s *session.Session, accepted *bool) {
	writeJSON(w, status, sessionResponse{
		SessionID: s.ID,
		Accepted:  accepted,
		State:     NewStateView(s.Machine.State()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}

func boolPtr(v bool) *bool { return &v }
