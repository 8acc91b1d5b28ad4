package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process bus used by tests and by the single-binary dev setup.
// Publish only queues; delivery happens in Drain or Run, so the publisher's
// state change always completes before any consumer sees the event.
type Memory struct {
	mu        sync.Mutex
	handlers  map[string][]Handler
	queue     []Message
	published []Event
	errs      []error
	notify    chan struct{}
	closed    bool
}

func NewMemory() *Memory {
	return &Memory{
		handlers: map[string][]Handler{},
		notify:   make(chan struct{}, 1),
	}
}

func (m *Memory) Publish(_ context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.Topic(), err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("publish %s: bus closed", evt.Topic())
	}
	m.published = append(m.published, evt)
	m.queue = append(m.queue, Message{Topic: evt.Topic(), Key: evt.Key(), Value: value})
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

func (m *Memory) Subscribe(topic string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = append(m.handlers[topic], h)
}

// Drain delivers queued messages in FIFO order, including any published while
// draining, and returns the number delivered. Handler errors are recorded and
// delivery continues.
func (m *Memory) Drain(ctx context.Context) int {
	delivered := 0
	for {
		if ctx.Err() != nil {
			return delivered
		}
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return delivered
		}
		msg := m.queue[0]
		m.queue = m.queue[1:]
		handlers := append([]Handler(nil), m.handlers[msg.Topic]...)
		m.mu.Unlock()

		for _, h := range handlers {
			if err := h(ctx, msg); err != nil {
				m.mu.Lock()
				m.errs = append(m.errs, fmt.Errorf("%s/%s: %w", msg.Topic, msg.Key, err))
				m.mu.Unlock()
			}
		}
		delivered++
	}
}

// Run drains continuously until ctx is cancelled.
func (m *Memory) Run(ctx context.Context) error {
	for {
		m.Drain(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-m.notify:
		}
	}
}

// Published returns every event accepted so far, in publish order.
func (m *Memory) Published() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.published...)
}

// Pending reports how many messages await delivery.
func (m *Memory) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Memory) Errors() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.errs...)
}

// Reset forgets recorded events and errors and drops undelivered messages.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
	m.queue = nil
	m.errs = nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
