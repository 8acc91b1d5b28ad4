package kafkax

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/staffsync/staffsync/libs/eventbus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	Brokers []string
	GroupID string
}

// Bus publishes JSON events keyed by aggregate id and consumes each subscribed
// topic with its own reader in the configured consumer group.
type Bus struct {
	cfg    Config
	writer *kafka.Writer
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[string]eventbus.Handler
	readers  []*kafka.Reader
}

func NewBus(cfg Config, logger *slog.Logger) (*Bus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("kafka group id not configured")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Bus{
		cfg:      cfg,
		writer:   writer,
		logger:   logger,
		handlers: map[string]eventbus.Handler{},
	}, nil
}

func (b *Bus) Publish(ctx context.Context, evt eventbus.Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.Topic(), err)
	}

	ctx, span := otel.Tracer("kafkax").Start(ctx, "kafka.publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", evt.Topic()),
		attribute.String("messaging.kafka.message_key", evt.Key()),
	)

	headers := []kafka.Header{{Key: HeaderEventType, Value: []byte(evt.Topic())}}
	headers = InjectTraceHeaders(ctx, headers)

	msg := kafka.Message{
		Topic:   evt.Topic(),
		Key:     []byte(evt.Key()),
		Value:   value,
		Headers: headers,
		Time:    time.Now().UTC(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish %s: %w", evt.Topic(), err)
	}
	return nil
}

// Subscribe registers the handler for a topic. Call before Run.
func (b *Bus) Subscribe(topic string, h eventbus.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = h
}

// Run consumes every subscribed topic until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	b.mu.Lock()
	if len(b.handlers) == 0 {
		b.mu.Unlock()
		<-ctx.Done()
		return nil
	}
	var wg sync.WaitGroup
	for topic, h := range b.handlers {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  b.cfg.Brokers,
			GroupID:  b.cfg.GroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
		b.readers = append(b.readers, reader)
		wg.Add(1)
		go func(topic string, reader *kafka.Reader, h eventbus.Handler) {
			defer wg.Done()
			b.consume(ctx, topic, reader, h)
		}(topic, reader, h)
	}
	b.mu.Unlock()

	wg.Wait()
	return nil
}

func (b *Bus) consume(ctx context.Context, topic string, reader *kafka.Reader, h eventbus.Handler) {
	b.logger.Info("kafka consumer started", "topic", topic, "group", b.cfg.GroupID)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("kafka consumer stopping", "topic", topic)
				return
			}
			b.logger.Error("kafka read failed", "topic", topic, "err", err)
			continue
		}

		msgCtx := ExtractTraceContext(ctx, msg)
		msgCtx, span := otel.Tracer("kafkax").Start(msgCtx, "kafka.consume", trace.WithSpanKind(trace.SpanKindConsumer))
		span.SetAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.String("messaging.kafka.message_key", string(msg.Key)),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
			attribute.String("event.type", EventType(msg)),
		)

		if err := h(msgCtx, eventbus.Message{Topic: msg.Topic, Key: string(msg.Key), Value: msg.Value}); err != nil {
			span.RecordError(err)
			b.logger.Error("event handling failed", "topic", msg.Topic, "key", string(msg.Key), "offset", msg.Offset, "err", err)
		}
		span.End()
	}
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for _, r := range b.readers {
		errs = append(errs, r.Close())
	}
	b.readers = nil
	errs = append(errs, b.writer.Close())
	return errors.Join(errs...)
}

var _ eventbus.Bus = (*Bus)(nil)
