package web

import (
	"context"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/valyala/fasthttp"
)

const closeWriteTimeout = time.Second

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(*fasthttp.RequestCtx) bool {
		return true
	},
}

// WorkflowLog streams the log of an execution over a websocket, from its
// first line. The server closes the socket once the log is finished.
func (h *APIHandlers) WorkflowLog(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	if !websocket.FastHTTPIsWebSocketUpgrade(c.RequestCtx()) {
		problem := problems.NewStatusProblem(426).
			WithInstance(c.Path()).
			WithType("upgrade_required").
			WithDetail("websocket upgrade required")

		return c.Status(fiber.StatusUpgradeRequired).JSON(problem)
	}

	return upgrader.Upgrade(c.RequestCtx(), func(conn *websocket.Conn) {
		h.streamLog(id, conn)
	})
}

func (h *APIHandlers) streamLog(executionID string, conn *websocket.Conn) {
	logger := h.logger.With("execution_id", executionID)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// reading is required to notice the client going away
	go func() {
		defer cancel()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.DebugContext(ctx, "Log stream opened")

	err := h.logs.Tail(ctx, executionID, func(line string) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			logger.DebugContext(ctx, "Log stream write failed", "error", err)
			cancel()
		}
	})
	if err != nil && ctx.Err() == nil {
		logger.WarnContext(ctx, "Log stream failed", "error", err)
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "log finished")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))

	logger.DebugContext(ctx, "Log stream closed")
}
