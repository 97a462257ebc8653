package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
	"github.com/hammamikhairi/voicehooks/internal/observability"
)

type fakeStatus struct {
	mu      sync.Mutex
	enabled bool
}

func (f *fakeStatus) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeStatus) set(enabled bool) {
	f.mu.Lock()
	f.enabled = enabled
	f.mu.Unlock()
}

func (f *fakeStatus) Speaking() bool             { return false }
func (f *fakeStatus) Config() domain.VoiceConfig { return domain.DefaultVoiceConfig() }

type fakeCommands struct {
	mu  sync.Mutex
	ran []string
}

func (f *fakeCommands) Run(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "explode" {
		return fmt.Errorf("%w: %q", domain.ErrUnknownCommand, name)
	}
	f.ran = append(f.ran, name)
	return nil
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, chan domain.Event, *fakeCommands, *fakeStatus) {
	t.Helper()
	events := make(chan domain.Event, 16)
	status := &fakeStatus{enabled: true}
	cmds := &fakeCommands{}
	srv := New(events, status, cmds, observability.NewMetrics("test_bridge"), logger.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts, events, cmds, status
}

func TestPostEvents(t *testing.T) {
	_, ts, events, _, _ := newTestServer(t)

	res, err := http.Post(ts.URL+"/v1/events", "application/json",
		strings.NewReader(`{"type":"file.saved","path":"main.go"}`))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusAccepted, res.StatusCode)

	ev := <-events
	require.Equal(t, domain.EventFileSaved, ev.Type)
	require.Equal(t, "main.go", ev.Path)
	require.Equal(t, Source, ev.Source)
}

func TestPostEventBatchPreservesOrder(t *testing.T) {
	_, ts, events, _, _ := newTestServer(t)

	body := `[
		{"type":"debug.started"},
		{"type":"text.changed","changes":[{"text":"function foo() {\n  return 1;\n}"}]},
		{"type":"notify","key":"git.commit","source":"vscode"}
	]`
	res, err := http.Post(ts.URL+"/v1/events", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusAccepted, res.StatusCode)

	require.Equal(t, domain.EventDebugStarted, (<-events).Type)
	text := <-events
	require.Equal(t, domain.EventTextChanged, text.Type)
	require.Len(t, text.Changes, 1)
	notify := <-events
	require.Equal(t, domain.KeyGitCommit, notify.Key)
	require.Equal(t, "vscode", notify.Source)
}

func TestPostEventsRejectsInvalid(t *testing.T) {
	_, ts, events, _, _ := newTestServer(t)

	for _, body := range []string{
		``,
		`{not json`,
		`{"type":"keyboard.mashed"}`,
		`{"type":"notify"}`,
		`[{"type":"file.saved"},{"type":"bogus"}]`,
	} {
		res, err := http.Post(ts.URL+"/v1/events", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		res.Body.Close()
		require.Equal(t, http.StatusBadRequest, res.StatusCode, "body %q", body)
	}
	require.Empty(t, events, "no event from an invalid batch may be delivered")
}

func TestCommandsEndpoint(t *testing.T) {
	_, ts, _, cmds, _ := newTestServer(t)

	res, err := http.Post(ts.URL+"/v1/commands/toggle", "application/json", nil)
	require.NoError(t, err)
	var st StatusResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&st))
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.True(t, st.Enabled)
	require.Equal(t, []string{"toggle"}, cmds.ran)

	res, err = http.Post(ts.URL+"/v1/commands/explode", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestStatusAndHealth(t *testing.T) {
	_, ts, _, _, status := newTestServer(t)
	status.set(false)

	res, err := http.Get(ts.URL + "/v1/status")
	require.NoError(t, err)
	var st StatusResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&st))
	res.Body.Close()
	require.False(t, st.Enabled)
	require.Equal(t, domain.DefaultVoiceName, st.Config.VoiceName)

	res, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestWebSocketEvents(t *testing.T) {
	srv, ts, events, _, status := newTestServer(t)
	conn := dial(t, ts)

	var hello Message
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, MsgHello, hello.Type)
	require.NotEmpty(t, hello.ConnectionID)
	require.NotNil(t, hello.Status)
	require.True(t, hello.Status.Enabled)

	require.NoError(t, conn.WriteJSON(domain.Event{Type: domain.EventTerminalOpened}))
	select {
	case ev := <-events:
		require.Equal(t, domain.EventTerminalOpened, ev.Type)
		require.Equal(t, Source, ev.Source)
	case <-time.After(2 * time.Second):
		require.Fail(t, "event not delivered")
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"nope"}`)))
	var errMsg Message
	require.NoError(t, conn.ReadJSON(&errMsg))
	require.Equal(t, MsgError, errMsg.Type)
	require.Contains(t, errMsg.Error, "unknown event type")

	require.Eventually(t, func() bool { return srv.Clients() == 1 }, time.Second, 10*time.Millisecond)
	status.set(false)
	srv.PublishStatus()
	var update Message
	require.NoError(t, conn.ReadJSON(&update))
	require.Equal(t, MsgStatus, update.Type)
	require.False(t, update.Status.Enabled)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, ts, _, _, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, res, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, res)
	require.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestPostRejectsForeignOrigin(t *testing.T) {
	_, ts, events, cmds, _ := newTestServer(t)

	for _, path := range []string{"/v1/events", "/v1/commands/disable"} {
		req, err := http.NewRequest(http.MethodPost, ts.URL+path,
			strings.NewReader(`{"type":"notify","key":"file.save"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", "https://evil.example")

		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		var body errorResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		res.Body.Close()
		require.Equal(t, http.StatusForbidden, res.StatusCode, path)
		require.Equal(t, "forbidden_origin", body.Code)
	}
	require.Empty(t, events)
	require.Empty(t, cmds.ran)

	// The daemon's own origin is accepted.
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/commands/disable", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", ts.URL)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestPostRequiresJSONContentType(t *testing.T) {
	_, ts, events, cmds, _ := newTestServer(t)

	for _, path := range []string{"/v1/events", "/v1/commands/disable"} {
		res, err := http.Post(ts.URL+path, "text/plain", strings.NewReader(`{"type":"notify","key":"file.save"}`))
		require.NoError(t, err)
		res.Body.Close()
		require.Equal(t, http.StatusUnsupportedMediaType, res.StatusCode, path)
	}
	require.Empty(t, events)
	require.Empty(t, cmds.ran)

	res, err := http.Post(ts.URL+"/v1/events", "application/json; charset=utf-8",
		strings.NewReader(`{"type":"notify","key":"file.save"}`))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	require.Equal(t, domain.KeyFileSave, (<-events).Key)
}
