package companysync

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/eventbus"
	"github.com/staffsync/staffsync/libs/events"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fixture struct {
	store    *MemoryStore
	bus      *eventbus.Memory
	producer *Producer
	consumer *Consumer
}

func newFixture(t *testing.T, opts ProducerOptions) *fixture {
	t.Helper()
	store := NewMemoryStore()
	bus := eventbus.NewMemory()
	t.Cleanup(func() { _ = bus.Close() })
	return &fixture{
		store:    store,
		bus:      bus,
		producer: NewProducer(store, bus, discardLogger(), opts),
		consumer: NewConsumer(store, discardLogger()),
	}
}

func (f *fixture) seed(t *testing.T, name string, members ...uuid.UUID) Company {
	t.Helper()
	c := Company{ID: uuid.New(), Name: name, Budget: "100", MemberIDs: members}
	if c.MemberIDs == nil {
		c.MemberIDs = []uuid.UUID{}
	}
	require.NoError(t, f.store.Insert(context.Background(), c))
	return c
}

func (f *fixture) assigned() []events.MemberAssigned {
	var out []events.MemberAssigned
	for _, evt := range f.bus.Published() {
		if e, ok := evt.(events.MemberAssigned); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fixture) cleared() []events.MemberCleared {
	var out []events.MemberCleared
	for _, evt := range f.bus.Published() {
		if e, ok := evt.(events.MemberCleared); ok {
			out = append(out, e)
		}
	}
	return out
}
