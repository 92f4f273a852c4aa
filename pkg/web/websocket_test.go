package web_test

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/dukex/flowcanvas/pkg/logchannel"
	"github.com/dukex/flowcanvas/pkg/runner"
	"github.com/gofiber/fiber/v3"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp/fasthttputil"
)

func TestAPIHandlers_WorkflowLogStream(t *testing.T) {
	env := setupTestApp(t)

	ln := fasthttputil.NewInmemoryListener()

	go func() {
		_ = env.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	t.Cleanup(func() {
		_ = env.app.Shutdown()
	})

	status, body := env.do(t, http.MethodPost, "/workflows/run", sampleDocument("ana"), map[string]string{
		"x-gmail-token":  "g-token",
		"x-notion-token": "n-token",
	})
	require.Equal(t, http.StatusOK, status)

	executionID := runResponseID(t, body)

	sub := logchannel.NewWebsocketSubscriber(slog.Default(), "http://flowcanvas.test/workflows/ws/workflow_log")
	sub.Dialer = &websocket.Dialer{
		NetDialContext: func(context.Context, string, string) (net.Conn, error) {
			return ln.Dial()
		},
		HandshakeTimeout: 5 * time.Second,
	}

	ch := logchannel.New(slog.Default(), sub)
	t.Cleanup(func() {
		_ = ch.Close()
	})

	require.NoError(t, ch.Open(t.Context(), executionID))

	select {
	case <-ch.Ended():
	case <-time.After(10 * time.Second):
		t.Fatal("log stream was not closed by the server")
	}

	lines := ch.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, runner.LineRule, lines[0])
	assert.Equal(t, runner.LineStarted, lines[1])
	assert.Contains(t, lines, "Notion page would be created under p-1.")
	assert.Equal(t, runner.LineExecuted, lines[len(lines)-2])
}
