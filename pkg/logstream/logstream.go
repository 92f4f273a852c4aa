// Package logstream stores the log lines of workflow executions and replays
// them to followers from the first line.
package logstream

import (
	"context"
	"errors"
)

var ErrEmptyExecutionID = errors.New("execution id cannot be empty")

// Store keeps per-execution logs.
type Store interface {
	// Append adds lines at the end of the execution log.
	Append(ctx context.Context, executionID string, lines ...string) error
	// Finish marks the log as complete. Followers return once they have
	// seen every line.
	Finish(ctx context.Context, executionID string) error
	// Tail calls fn for every line from the first one, in order, until the
	// log is finished or ctx is done.
	Tail(ctx context.Context, executionID string, fn func(line string)) error
	Close() error
}
