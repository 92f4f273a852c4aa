package logstream

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	topicPrefix = "workflow_log."
	metadataEOF = "eof"
)

// BusStore publishes log lines on a watermill topic per execution. The
// subscriber must replay a topic from its start (a persistent gochannel, or
// kafka reading from the oldest offset).
type BusStore struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewBusStore creates a store over a publisher and subscriber pair.
func NewBusStore(publisher message.Publisher, subscriber message.Subscriber) *BusStore {
	return &BusStore{
		publisher:  publisher,
		subscriber: subscriber,
	}
}

// Topic returns the topic carrying the log of executionID.
func Topic(executionID string) string {
	return topicPrefix + executionID
}

func (b *BusStore) Append(_ context.Context, executionID string, lines ...string) error {
	if executionID == "" {
		return ErrEmptyExecutionID
	}

	msgs := make([]*message.Message, 0, len(lines))
	for _, line := range lines {
		msgs = append(msgs, message.NewMessage(watermill.NewUUID(), []byte(line)))
	}

	err := b.publisher.Publish(Topic(executionID), msgs...)
	if err != nil {
		return fmt.Errorf("failed to publish log lines: %w", err)
	}

	return nil
}

func (b *BusStore) Finish(_ context.Context, executionID string) error {
	msg := message.NewMessage(watermill.NewUUID(), nil)
	msg.Metadata.Set(metadataEOF, "true")

	err := b.publisher.Publish(Topic(executionID), msg)
	if err != nil {
		return fmt.Errorf("failed to publish end of log: %w", err)
	}

	return nil
}

func (b *BusStore) Tail(ctx context.Context, executionID string, fn func(line string)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := b.subscriber.Subscribe(ctx, Topic(executionID))
	if err != nil {
		return fmt.Errorf("failed to subscribe to log: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return ctx.Err()
			}

			msg.Ack()

			if msg.Metadata.Get(metadataEOF) == "true" {
				return nil
			}

			fn(string(msg.Payload))
		}
	}
}

func (b *BusStore) Close() error {
	if err := b.publisher.Close(); err != nil {
		return err
	}

	if any(b.subscriber) == any(b.publisher) {
		return nil
	}

	return b.subscriber.Close()
}
