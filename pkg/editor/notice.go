package editor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/flowcanvas/pkg/client"
)

// Level of a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a user-visible message about a backend operation.
type Notice struct {
	Level   Level
	Op      string
	Message string
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

// LogNotifier writes notices to logger.
func LogNotifier(logger *slog.Logger) Notifier {
	return NotifierFunc(func(n Notice) {
		level := slog.LevelInfo
		if n.Level == LevelError {
			level = slog.LevelError
		}

		logger.Log(context.Background(), level, n.Message, "op", n.Op)
	})
}

var failureMessages = map[string]string{
	"save":     "Failed to save workflow",
	"run":      "Failed to run workflow",
	"list":     "Failed to load workflows",
	"delete":   "Failed to delete workflow",
	"schedule": "Failed to schedule workflow",
}

func failureMessage(op string, err error) string {
	msg, ok := failureMessages[op]
	if !ok {
		msg = "Request failed"
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return msg + ": " + apiErr.Message
	}

	return msg
}
