// Package eventbus describes the publish/subscribe contract the services rely on.
// Delivery is at-least-once and unordered across keys; handlers must be idempotent.
package eventbus

import "context"

// Event is anything that knows its topic and partition key.
type Event interface {
	Topic() string
	Key() string
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Message is a delivered event in wire form.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// Handler processes one message. A returned error is logged by the bus and the
// message is not retried.
type Handler func(ctx context.Context, msg Message) error

type Subscriber interface {
	Subscribe(topic string, h Handler)
	// Run delivers messages until ctx is cancelled.
	Run(ctx context.Context) error
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}
