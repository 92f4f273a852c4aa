package logchannel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWebsocketURL is the log endpoint of a local backend.
const DefaultWebsocketURL = "ws://localhost:8000/workflows/ws/workflow_log"

// WebsocketSubscriber reads one text frame per log line from
// {BaseURL}/{executionID}.
type WebsocketSubscriber struct {
	BaseURL string
	Header  http.Header
	Dialer  *websocket.Dialer

	logger *slog.Logger
}

// NewWebsocketSubscriber creates a subscriber for baseURL. An http(s) URL is
// turned into the matching ws(s) URL.
func NewWebsocketSubscriber(log *slog.Logger, baseURL string) *WebsocketSubscriber {
	if baseURL == "" {
		baseURL = DefaultWebsocketURL
	}

	switch {
	case strings.HasPrefix(baseURL, "http://"):
		baseURL = "ws://" + strings.TrimPrefix(baseURL, "http://")
	case strings.HasPrefix(baseURL, "https://"):
		baseURL = "wss://" + strings.TrimPrefix(baseURL, "https://")
	}

	return &WebsocketSubscriber{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Dialer:  websocket.DefaultDialer,
		logger:  log.With("module", "logchannel.websocket"),
	}
}

func (w *WebsocketSubscriber) Subscribe(ctx context.Context, executionID string, deliver DeliverFunc) (Subscription, error) {
	target := w.BaseURL + "/" + url.PathEscape(executionID)

	dialer := w.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, target, w.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", target, err)
	}

	sub := &websocketSubscription{
		conn: conn,
		done: make(chan struct{}),
	}

	go sub.read(w.logger, executionID, deliver)

	return sub, nil
}

type websocketSubscription struct {
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func (s *websocketSubscription) read(logger *slog.Logger, executionID string, deliver DeliverFunc) {
	defer close(s.done)

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("log stream stopped", "execution_id", executionID, "error", err)
			}

			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		deliver(string(data))
	}
}

func (s *websocketSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *websocketSubscription) Close() error {
	var err error

	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)

		err = s.conn.Close()
		<-s.done
	})

	return err
}
