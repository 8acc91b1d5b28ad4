package employeesync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/eventbus"
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

func (f *fixture) seed(t *testing.T, employer uuid.NullUUID) Employee {
	t.Helper()
	e := Employee{ID: uuid.New(), FirstName: "Ada", LastName: "Lovelace", Phone: "+44 20 7946 0000", EmployerID: employer}
	require.NoError(t, f.store.Insert(context.Background(), e))
	return e
}

func employer(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: true}
}

func message(t *testing.T, evt eventbus.Event) eventbus.Message {
	t.Helper()
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	return eventbus.Message{Topic: evt.Topic(), Key: evt.Key(), Value: raw}
}
