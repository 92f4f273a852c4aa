package logchannel

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logServer(t *testing.T, lines map[string][]string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, line := range lines[id] {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		}

		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))

	t.Cleanup(server.Close)

	return server
}

func TestWebsocketSubscriber_DeliversFrames(t *testing.T) {
	server := logServer(t, map[string][]string{
		"exec-1": {"Workflow started.", "Executing gmail step", "Workflow executed."},
	})

	sub := NewWebsocketSubscriber(slog.Default(), server.URL+"/workflows/ws/workflow_log/")
	assert.True(t, strings.HasPrefix(sub.BaseURL, "ws://"))

	ch := New(slog.Default(), sub)
	require.NoError(t, ch.Open(t.Context(), "exec-1"))

	select {
	case <-ch.Ended():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end")
	}

	assert.Equal(t, []string{"Workflow started.", "Executing gmail step", "Workflow executed."}, ch.Lines())
	assert.Equal(t, StateSubscribed, ch.State())

	require.NoError(t, ch.Close())
}

func TestWebsocketSubscriber_DialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	ch := New(slog.Default(), NewWebsocketSubscriber(slog.Default(), server.URL))

	require.Error(t, ch.Open(t.Context(), "exec-1"))
	assert.Equal(t, StateIdle, ch.State())
}

func TestNewWebsocketSubscriber_URLs(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "", want: DefaultWebsocketURL},
		{in: "https://canvas.example.com/workflows/ws/workflow_log/", want: "wss://canvas.example.com/workflows/ws/workflow_log"},
		{in: "ws://localhost:9000/logs", want: "ws://localhost:9000/logs"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, NewWebsocketSubscriber(slog.Default(), tc.in).BaseURL)
		})
	}
}
