package mocks

import (
	"context"
	"sync"

	"github.com/dukex/flowcanvas/pkg/logchannel"
)

// FakeSubscriber is an in-memory logchannel.Subscriber. Send pushes a line
// to the subscription of an execution id.
type FakeSubscriber struct {
	mu       sync.Mutex
	delivers map[string]logchannel.DeliverFunc
	opened   []string
	closed   []string
}

func NewFakeSubscriber() *FakeSubscriber {
	return &FakeSubscriber{delivers: make(map[string]logchannel.DeliverFunc)}
}

func (f *FakeSubscriber) Subscribe(_ context.Context, executionID string, deliver logchannel.DeliverFunc) (logchannel.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.delivers[executionID] = deliver
	f.opened = append(f.opened, executionID)

	return &fakeSubscription{parent: f, id: executionID, done: make(chan struct{})}, nil
}

func (f *FakeSubscriber) Send(executionID, line string) {
	f.mu.Lock()
	deliver := f.delivers[executionID]
	f.mu.Unlock()

	if deliver != nil {
		deliver(line)
	}
}

func (f *FakeSubscriber) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.opened...)
}

func (f *FakeSubscriber) Closed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.closed...)
}

type fakeSubscription struct {
	parent *FakeSubscriber
	id     string
	done   chan struct{}
	once   sync.Once
}

func (s *fakeSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *fakeSubscription) Close() error {
	s.once.Do(func() {
		s.parent.mu.Lock()
		s.parent.closed = append(s.parent.closed, s.id)
		s.parent.mu.Unlock()

		close(s.done)
	})

	return nil
}
