package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type streamInbound struct {
	Type string `json:"type"`
	Seed string `json:"seed,omitempty"`
}

type streamOutbound struct {
	Type      string     `json:"type"`
	SessionID string     `json:"sessionId,omitempty"`
	Action    string     `json:"action,omitempty"`
	Accepted  bool       `json:"accepted,omitempty"`
	State     *StateView `json:"state,omitempty"`
	Code      string     `json:"code,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// HandleStream pushes every state transition of a session and accepts the
// same user actions as the REST endpoints. Expand and visualize run in the
// background so a reset can arrive while they are in flight.
func (h *SessionHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		h.log.Printf("session ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	writeCh := make(chan streamOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(streamPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	states := s.Machine.Subscribe(ctx)
	go func() {
		for st := range states {
			view := NewStateView(st)
			pushStream(writeCh, streamOutbound{Type: "state", SessionID: s.ID, State: &view})
		}
	}()

	// Model calls outlive the socket; their results land in the machine.
	work := context.WithoutCancel(ctx)
	for {
		var in streamInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch msgType := strings.ToLower(strings.TrimSpace(in.Type)); msgType {
		case "":
			pushStream(writeCh, streamOutbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		case "ping":
			pushStream(writeCh, streamOutbound{Type: "pong"})
		case "expand":
			if strings.TrimSpace(in.Seed) == "" {
				pushStream(writeCh, streamOutbound{Type: "error", Code: "invalid_argument", Message: "seed is required"})
				continue
			}
			h.detach(func() { s.Machine.Submit(work, in.Seed) })
		case "visualize":
			h.detach(func() { s.Machine.GenerateVisual(work) })
		case "reset":
			s.Machine.Reset()
			pushStream(writeCh, streamOutbound{Type: "ack", Action: "reset", Accepted: true})
		default:
			pushStream(writeCh, streamOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + msgType})
		}
	}
}

func pushStream(writeCh chan streamOutbound, out streamOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}

