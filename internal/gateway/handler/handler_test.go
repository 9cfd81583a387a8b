package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/gateway/handler"
	"nexus/internal/gateway/server"
	"nexus/internal/gateway/session"
	"nexus/internal/idea"
	"nexus/internal/trace"
	"nexus/internal/types"
)

var sample = types.Expansion{
	Title:               "PawPath",
	Tagline:             "Walks on demand",
	Description:         "On-demand dog walking.",
	TargetAudience:      []string{"a", "b", "c"},
	KeyFeatures:         []string{"1", "2", "3", "4"},
	PotentialChallenges: []string{"x", "y", "z"},
	PivotOptions:        []types.Pivot{{Name: "PawSit", Description: "Sitting"}},
}

// stubExpander returns sample unless the seed contains "fail". When gate is
// set every call waits on it.
type stubExpander struct {
	gate  chan struct{}
	calls chan string
}

func (s *stubExpander) Expand(_ context.Context, seed string) (types.Expansion, error) {
	if s.calls != nil {
		s.calls <- seed
	}
	if s.gate != nil {
		<-s.gate
	}
	if strings.Contains(seed, "fail") {
		return types.Expansion{}, errors.New("upstream 500")
	}
	return sample, nil
}

type stubVisualizer struct{ art types.ImageArtifact }

func (s stubVisualizer) Visualize(context.Context, types.Expansion) types.ImageArtifact { return s.art }

type fixture struct {
	srv      *httptest.Server
	sessions *session.Registry
	handler  *handler.SessionHandler
	files    *trace.FileSink
}

func newFixture(t *testing.T, exp *stubExpander, vis stubVisualizer) *fixture {
	t.Helper()
	logger := log.New(&bytes.Buffer{}, "", 0)
	files := trace.NewFileSink(t.TempDir())
	sessions := session.NewRegistry(8, time.Hour, func(id string) *idea.Machine {
		return idea.New(exp, vis, idea.WithLogger(logger), idea.WithTraceSink(files), idea.WithSessionID(id))
	}, logger)
	sh := handler.NewSessionHandler(sessions, logger)
	mux := server.NewMux(
		sh,
		handler.NewTraceHandler(files, files),
		handler.NewHealthHandler(sessions, "stub"),
	)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, sessions: sessions, handler: sh, files: files}
}

type sessionBody struct {
	SessionID string `json:"sessionId"`
	Accepted  *bool  `json:"accepted"`
	State     struct {
		Seed            string           `json:"seed"`
		Stage           string           `json:"stage"`
		Error           string           `json:"error"`
		Image           string           `json:"image"`
		ImageIsFallback bool             `json:"imageIsFallback"`
		IsVisualizing   bool             `json:"isVisualizing"`
		Expansion       *types.Expansion `json:"expansion"`
	} `json:"state"`
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (f *fixture) session(t *testing.T, method, path, body string) sessionBody {
	t.Helper()
	resp, raw := f.do(t, method, path, body)
	require.Less(t, resp.StatusCode, 300, string(raw))
	var out sessionBody
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func (f *fixture) create(t *testing.T) string {
	t.Helper()
	resp, raw := f.do(t, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out sessionBody
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotEmpty(t, out.SessionID)
	assert.Equal(t, "INPUT", out.State.Stage)
	assert.Nil(t, out.Accepted)
	return out.SessionID
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, &stubExpander{}, stubVisualizer{art: "data:image/png;base64,QQ=="})
	id := f.create(t)
	base := "/api/sessions/" + id

	out := f.session(t, http.MethodPost, base+"/expand", `{"seed":"Uber for dog walking"}`)
	require.NotNil(t, out.Accepted)
	assert.True(t, *out.Accepted)
	assert.Equal(t, "COMPLETE", out.State.Stage)
	require.NotNil(t, out.State.Expansion)
	assert.Equal(t, "PawPath", out.State.Expansion.Title)
	assert.Empty(t, out.State.Image)

	out = f.session(t, http.MethodPost, base+"/visualize", "")
	assert.True(t, *out.Accepted)
	assert.Equal(t, "data:image/png;base64,QQ==", out.State.Image)
	assert.False(t, out.State.ImageIsFallback)
	assert.False(t, out.State.IsVisualizing)

	out = f.session(t, http.MethodGet, base, "")
	assert.Equal(t, "COMPLETE", out.State.Stage)

	out = f.session(t, http.MethodPost, base+"/reset", "")
	assert.True(t, *out.Accepted)
	assert.Equal(t, "INPUT", out.State.Stage)
	assert.Nil(t, out.State.Expansion)
	assert.Empty(t, out.State.Seed)
}

func TestExpandFailureShowsGenericMessage(t *testing.T) {
	f := newFixture(t, &stubExpander{}, stubVisualizer{})
	id := f.create(t)
	out := f.session(t, http.MethodPost, "/api/sessions/"+id+"/expand", `{"seed":"please fail"}`)
	assert.Equal(t, "INPUT", out.State.Stage)
	assert.Equal(t, idea.ErrorMessage, out.State.Error)
	assert.NotContains(t, out.State.Error, "upstream 500")
	assert.Nil(t, out.State.Expansion)

	events, err := f.files.Read(id)
	require.NoError(t, err)
	var causes []string
	for _, ev := range events {
		if ev.Stage == "expand.failed" {
			causes = append(causes, ev.Fields["cause"].(string))
		}
	}
	require.NotEmpty(t, causes)
	assert.Contains(t, causes[0], "upstream 500")
}

func TestExpandRejectsBadInput(t *testing.T) {
	calls := make(chan string, 4)
	f := newFixture(t, &stubExpander{calls: calls}, stubVisualizer{})
	id := f.create(t)
	for _, body := range []string{`{"seed":"   "}`, `{}`, `not json`} {
		resp, _ := f.do(t, http.MethodPost, "/api/sessions/"+id+"/expand", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Empty(t, calls)
}

func TestVisualizeWithoutExpansionIsNotAccepted(t *testing.T) {
	f := newFixture(t, &stubExpander{}, stubVisualizer{art: types.FallbackImage})
	id := f.create(t)
	out := f.session(t, http.MethodPost, "/api/sessions/"+id+"/visualize", "")
	assert.False(t, *out.Accepted)
	assert.Equal(t, "INPUT", out.State.Stage)
}

func TestFallbackImageIsFlagged(t *testing.T) {
	f := newFixture(t, &stubExpander{}, stubVisualizer{art: types.FallbackImage})
	id := f.create(t)
	f.session(t, http.MethodPost, "/api/sessions/"+id+"/expand", `{"seed":"idea"}`)
	out := f.session(t, http.MethodPost, "/api/sessions/"+id+"/visualize", "")
	assert.Equal(t, string(types.FallbackImage), out.State.Image)
	assert.True(t, out.State.ImageIsFallback)
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t, &stubExpander{}, stubVisualizer{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/sessions/nope"},
		{http.MethodPost, "/api/sessions/nope/expand"},
		{http.MethodPost, "/api/sessions/nope/visualize"},
		{http.MethodPost, "/api/sessions/nope/reset"},
		{http.MethodGet, "/api/sessions/nope/report"},
	} {
		resp, _ := f.do(t, tc.method, tc.path, `{"seed":"x"}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tc.path)
	}
}

func TestReport(t *testing.T) {
	f := newFixture(t, &stubExpander{}, stubVisualizer{})
	id := f.create(t)
	base := "/api/sessions/" + id + "/report"

	resp, _ := f.do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	f.session(t, http.MethodPost, "/api/sessions/"+id+"/expand", `{"seed":"idea"}`)

	resp, raw := f.do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	assert.Contains(t, string(raw), "# PawPath")

	resp, raw = f.do(t, http.MethodGet, base+"?format=html", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(raw), "<h1>PawPath</h1>")

	resp, _ = f.do(t, http.MethodGet, base+"?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndTrace(t *testing.T) {
	f := newFixture(t, &stubExpander{}, stubVisualizer{})
	id := f.create(t)

	resp, raw := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true,"provider":"stub","sessions":1}`, string(raw))

	resp, _ = f.do(t, http.MethodPost, "/debug/frontend-trace", `{"session_id":"`+id+`","stage":"ui.click","level":"info","fields":{"button":"visualize"}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = f.do(t, http.MethodGet, "/debug/trace?session_id="+id, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		SessionID string        `json:"session_id"`
		Events    []trace.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Events, 1)
	assert.Equal(t, "frontend", out.Events[0].Source)
	assert.Equal(t, "visualize", out.Events[0].Fields["button"])
	assert.Equal(t, "info", out.Events[0].Fields["level"])

	resp, _ = f.do(t, http.MethodGet, "/debug/trace", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/debug/frontend-trace", `{"stage":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type wsMessage struct {
	Type     string `json:"type"`
	Action   string `json:"action"`
	Accepted bool   `json:"accepted"`
	Code     string `json:"code"`
	State    *struct {
		Stage         string `json:"stage"`
		Error         string `json:"error"`
		IsVisualizing bool   `json:"isVisualizing"`
	} `json:"state"`
}

func dial(t *testing.T, f *fixture, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func stageIs(stage string) func(wsMessage) bool {
	return func(m wsMessage) bool { return m.Type == "state" && m.State != nil && m.State.Stage == stage }
}

func TestStreamDrivesCycle(t *testing.T) {
	gate := make(chan struct{})
	f := newFixture(t, &stubExpander{gate: gate}, stubVisualizer{art: types.FallbackImage})
	id := f.create(t)
	conn := dial(t, f, id)

	readUntil(t, conn, stageIs("INPUT"))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "pong" })

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "expand", "seed": "idea"}))
	readUntil(t, conn, stageIs("EXPANDING"))
	close(gate)
	readUntil(t, conn, stageIs("COMPLETE"))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "visualize"}))
	readUntil(t, conn, func(m wsMessage) bool {
		return m.Type == "state" && m.State != nil && m.State.Stage == "COMPLETE" && !m.State.IsVisualizing
	})

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "reset"}))
	ack := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "ack" })
	assert.Equal(t, "reset", ack.Action)
	assert.True(t, ack.Accepted)
}

func TestStreamResetDuringExpansion(t *testing.T) {
	gate := make(chan struct{})
	f := newFixture(t, &stubExpander{gate: gate}, stubVisualizer{})
	id := f.create(t)
	conn := dial(t, f, id)
	readUntil(t, conn, stageIs("INPUT"))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "expand", "seed": "idea"}))
	readUntil(t, conn, stageIs("EXPANDING"))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "reset"}))
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "ack" })
	close(gate)

	s, ok := f.sessions.Get(id)
	require.True(t, ok)
	require.Never(t, func() bool { return s.Machine.State().Stage != types.StageInput }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Nil(t, s.Machine.State().Expansion)
}

func TestWaitDrainsExpansionStartedByClosedStream(t *testing.T) {
	gate := make(chan struct{})
	calls := make(chan string, 1)
	f := newFixture(t, &stubExpander{gate: gate, calls: calls}, stubVisualizer{})
	id := f.create(t)
	conn := dial(t, f, id)
	readUntil(t, conn, stageIs("INPUT"))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "expand", "seed": "idea"}))
	assert.Equal(t, "idea", <-calls)
	require.NoError(t, conn.Close())

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.handler.Wait(short), context.DeadlineExceeded)

	close(gate)
	require.NoError(t, f.handler.Wait(context.Background()))
	s, ok := f.sessions.Get(id)
	require.True(t, ok)
	assert.Equal(t, types.StageComplete, s.Machine.State().Stage)
}

func TestStreamRejectsBadMessages(t *testing.T) {
	f := newFixture(t, &stubExpander{}, stubVisualizer{})
	id := f.create(t)
	conn := dial(t, f, id)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "expand", "seed": "  "}))
	msg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	assert.Equal(t, "invalid_argument", msg.Code)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "launch"}))
	msg = readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	assert.Equal(t, "invalid_argument", msg.Code)
}

func TestStreamUnknownSession(t *testing.T) {
	f := newFixture(t, &stubExpander{}, stubVisualizer{})
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/sessions/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
