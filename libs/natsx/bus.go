// Package natsx carries relationship events over NATS core subjects, one subject per topic.
// NATS core does not persist messages, so a consumer that is down misses them.
package natsx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/staffsync/staffsync/libs/eventbus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	headerEventType = "Event-Type"
	headerKey       = "Event-Key"
)

type Config struct {
	URL           string
	Name          string
	Queue         string // queue group; one member per group receives each message
	ConnTimeout   time.Duration
	MaxReconnects int
}

// conn is the subset of *nats.Conn the bus uses.
type conn interface {
	PublishMsg(msg *nats.Msg) error
	QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	Flush() error
	Drain() error
	IsConnected() bool
}

type Bus struct {
	nc     conn
	queue  string
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[string]eventbus.Handler
}

func Connect(cfg Config, logger *slog.Logger) (*Bus, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url required")
	}
	if cfg.Queue == "" {
		return nil, errors.New("nats queue group required")
	}

	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}
	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return newBus(nc, cfg.Queue, logger), nil
}

func newBus(nc conn, queue string, logger *slog.Logger) *Bus {
	return &Bus{nc: nc, queue: queue, logger: logger, handlers: map[string]eventbus.Handler{}}
}

func (b *Bus) Publish(ctx context.Context, evt eventbus.Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.Topic(), err)
	}

	ctx, span := otel.Tracer("natsx").Start(ctx, "nats.publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "nats"),
		attribute.String("messaging.destination", evt.Topic()),
	)

	msg := nats.NewMsg(evt.Topic())
	msg.Data = value
	msg.Header.Set(headerEventType, evt.Topic())
	msg.Header.Set(headerKey, evt.Key())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))

	if err := b.nc.PublishMsg(msg); err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish %s: %w", evt.Topic(), err)
	}
	return b.nc.Flush()
}

// Subscribe registers the handler for a topic. Call before Run.
func (b *Bus) Subscribe(topic string, h eventbus.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = h
}

// Run subscribes every registered topic in the queue group and blocks until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	b.mu.Lock()
	subs := make([]*nats.Subscription, 0, len(b.handlers))
	for topic, h := range b.handlers {
		sub, err := b.nc.QueueSubscribe(topic, b.queue, b.dispatch(ctx, h))
		if err != nil {
			b.mu.Unlock()
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		subs = append(subs, sub)
		b.logger.Info("nats consumer started", "subject", topic, "queue", b.queue)
	}
	b.mu.Unlock()

	<-ctx.Done()
	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	return nil
}

func (b *Bus) dispatch(ctx context.Context, h eventbus.Handler) nats.MsgHandler {
	return func(m *nats.Msg) {
		msgCtx := ctx
		if m.Header != nil {
			msgCtx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(http.Header(m.Header)))
		}
		msgCtx, span := otel.Tracer("natsx").Start(msgCtx, "nats.consume", trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()

		msg := eventbus.Message{Topic: m.Subject, Value: m.Data}
		if m.Header != nil {
			msg.Key = m.Header.Get(headerKey)
		}
		if err := h(msgCtx, msg); err != nil {
			span.RecordError(err)
			b.logger.Error("event handling failed", "subject", m.Subject, "key", msg.Key, "err", err)
		}
	}
}

func (b *Bus) ReadyCheck(context.Context) error {
	if !b.nc.IsConnected() {
		return errors.New("nats not connected")
	}
	return nil
}

func (b *Bus) Close() error {
	return b.nc.Drain()
}

var _ eventbus.Bus = (*Bus)(nil)
