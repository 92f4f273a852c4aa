// Package logchannel follows the live log of one workflow execution.
//
// A Channel is either Idle or Subscribed to exactly one execution id.
// Opening a new id closes the previous subscription before the new one is
// opened, and lines still in flight from the old subscription are dropped.
package logchannel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

var (
	ErrEmptyExecutionID = errors.New("execution id cannot be empty")
	ErrShutdown         = errors.New("log channel is shut down")
)

// State of a Channel.
type State int

const (
	StateIdle State = iota
	StateSubscribed
)

func (s State) String() string {
	if s == StateSubscribed {
		return "subscribed"
	}

	return "idle"
}

// DeliverFunc receives one log line.
type DeliverFunc func(line string)

// Subscription is a live log feed. Done is closed once the feed has ended,
// whether by Close, by an error or because the remote side went away.
type Subscription interface {
	Done() <-chan struct{}
	Close() error
}

// Subscriber opens a log feed for an execution id. Implementations call
// deliver once per line, in arrival order, and never retry.
type Subscriber interface {
	Subscribe(ctx context.Context, executionID string, deliver DeliverFunc) (Subscription, error)
}

// Option configures a Channel.
type Option func(*Channel)

// WithMaxLines keeps only the newest n lines. Zero or less means unbounded.
func WithMaxLines(n int) Option {
	return func(c *Channel) {
		c.maxLines = n
	}
}

// WithLineHandler registers a callback invoked for every accepted line,
// outside the channel lock.
func WithLineHandler(fn func(executionID, line string)) Option {
	return func(c *Channel) {
		c.onLine = fn
	}
}

// Channel buffers the log of the current execution.
type Channel struct {
	subscriber Subscriber
	logger     *slog.Logger
	maxLines   int
	onLine     func(executionID, line string)

	mu          sync.Mutex
	shutdown    bool
	state       State
	executionID string
	generation  uint64
	sub         Subscription
	lines       []string
}

// New creates an idle channel.
func New(log *slog.Logger, subscriber Subscriber, opts ...Option) *Channel {
	c := &Channel{
		subscriber: subscriber,
		logger:     log.With("module", "logchannel"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Open subscribes to executionID. The buffer is cleared and any current
// subscription is closed first. Opening the id that is already being
// followed is a no-op.
func (c *Channel) Open(ctx context.Context, executionID string) error {
	if executionID == "" {
		return ErrEmptyExecutionID
	}

	c.mu.Lock()

	if c.shutdown {
		c.mu.Unlock()

		return ErrShutdown
	}

	if c.state == StateSubscribed && c.executionID == executionID && !ended(c.sub) {
		c.mu.Unlock()

		return nil
	}

	previous := c.detachLocked()
	c.lines = nil
	c.executionID = executionID
	generation := c.generation
	c.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			c.logger.DebugContext(ctx, "closing previous log subscription", "error", err)
		}
	}

	sub, err := c.subscriber.Subscribe(ctx, executionID, c.deliverer(generation, executionID))
	if err != nil {
		c.mu.Lock()
		if c.generation == generation {
			c.executionID = ""
		}
		c.mu.Unlock()

		return fmt.Errorf("failed to subscribe to execution %s: %w", executionID, err)
	}

	c.mu.Lock()

	if c.generation != generation {
		// superseded while subscribing
		c.mu.Unlock()

		_ = sub.Close()

		return nil
	}

	c.sub = sub
	c.state = StateSubscribed
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "log subscription opened", "execution_id", executionID)

	go c.watch(generation, executionID, sub)

	return nil
}

func (c *Channel) watch(generation uint64, executionID string, sub Subscription) {
	<-sub.Done()

	c.mu.Lock()
	current := c.generation == generation
	c.mu.Unlock()

	if current {
		c.logger.Info("log subscription ended", "execution_id", executionID)
	}
}

func (c *Channel) deliverer(generation uint64, executionID string) DeliverFunc {
	return func(line string) {
		c.mu.Lock()

		if c.generation != generation {
			c.mu.Unlock()

			return
		}

		c.lines = append(c.lines, line)
		if c.maxLines > 0 && len(c.lines) > c.maxLines {
			c.lines = slices.Delete(c.lines, 0, len(c.lines)-c.maxLines)
		}

		onLine := c.onLine
		c.mu.Unlock()

		if onLine != nil {
			onLine(executionID, line)
		}
	}
}

// detachLocked moves the channel to Idle and invalidates every line still
// in flight. It returns the subscription to close.
func (c *Channel) detachLocked() Subscription {
	previous := c.sub

	c.generation++
	c.sub = nil
	c.state = StateIdle
	c.executionID = ""

	return previous
}

// Close tears the subscription down and returns to Idle. Buffered lines are
// kept.
func (c *Channel) Close() error {
	c.mu.Lock()
	previous := c.detachLocked()
	c.mu.Unlock()

	if previous == nil {
		return nil
	}

	return previous.Close()
}

// Shutdown closes the channel for good: the current subscription is torn
// down and every later Open fails with ErrShutdown.
func (c *Channel) Shutdown() error {
	c.mu.Lock()
	c.shutdown = true
	previous := c.detachLocked()
	c.mu.Unlock()

	if previous == nil {
		return nil
	}

	return previous.Close()
}

// Clear empties the buffer without touching the subscription.
func (c *Channel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
}

// Lines returns a copy of the buffered lines in arrival order.
func (c *Channel) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.lines)
}

// State returns the current state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// ExecutionID returns the execution being followed, empty when idle.
func (c *Channel) ExecutionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.executionID
}

// Ended is closed when the current feed stops. When idle it is already
// closed.
func (c *Channel) Ended() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub == nil {
		done := make(chan struct{})
		close(done)

		return done
	}

	return c.sub.Done()
}

func ended(sub Subscription) bool {
	if sub == nil {
		return true
	}

	select {
	case <-sub.Done():
		return true
	default:
		return false
	}
}
