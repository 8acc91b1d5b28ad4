package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testEvent struct {
	T string `json:"-"`
	K string `json:"key"`
}

func (e testEvent) Topic() string { return e.T }
func (e testEvent) Key() string   { return e.K }

func TestMemory_PublishDoesNotDeliverUntilDrain(t *testing.T) {
	bus := NewMemory()
	var got []string
	bus.Subscribe("a", func(_ context.Context, msg Message) error {
		got = append(got, msg.Key)
		return nil
	})

	if err := bus.Publish(context.Background(), testEvent{T: "a", K: "1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 0 {
		t.Fatal("expected no delivery before drain")
	}
	if bus.Pending() != 1 {
		t.Fatalf("expected 1 pending, got %d", bus.Pending())
	}
	if n := bus.Drain(context.Background()); n != 1 {
		t.Fatalf("expected 1 delivered, got %d", n)
	}
	if len(got) != 1 || got[0] != "1" {
		t.Fatalf("unexpected deliveries %v", got)
	}
}

func TestMemory_DrainIncludesCascadedEvents(t *testing.T) {
	bus := NewMemory()
	var order []string
	bus.Subscribe("first", func(ctx context.Context, msg Message) error {
		order = append(order, "first:"+msg.Key)
		return bus.Publish(ctx, testEvent{T: "second", K: msg.Key})
	})
	bus.Subscribe("second", func(_ context.Context, msg Message) error {
		order = append(order, "second:"+msg.Key)
		return nil
	})

	_ = bus.Publish(context.Background(), testEvent{T: "first", K: "x"})
	_ = bus.Publish(context.Background(), testEvent{T: "first", K: "y"})
	bus.Drain(context.Background())

	want := []string{"first:x", "first:y", "second:x", "second:y"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
	if len(bus.Published()) != 4 {
		t.Fatalf("expected 4 published events, got %d", len(bus.Published()))
	}
}

func TestMemory_HandlerErrorsAreRecordedAndDeliveryContinues(t *testing.T) {
	bus := NewMemory()
	calls := 0
	bus.Subscribe("a", func(context.Context, Message) error {
		calls++
		return errors.New("boom")
	})
	_ = bus.Publish(context.Background(), testEvent{T: "a", K: "1"})
	_ = bus.Publish(context.Background(), testEvent{T: "a", K: "2"})
	bus.Drain(context.Background())

	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(bus.Errors()) != 2 {
		t.Fatalf("expected 2 recorded errors, got %d", len(bus.Errors()))
	}

	bus.Reset()
	if len(bus.Errors()) != 0 || len(bus.Published()) != 0 {
		t.Fatal("expected reset to clear state")
	}
}

func TestMemory_RunDeliversUntilCancelled(t *testing.T) {
	bus := NewMemory()
	done := make(chan string, 1)
	bus.Subscribe("a", func(_ context.Context, msg Message) error {
		done <- msg.Key
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- bus.Run(ctx) }()

	_ = bus.Publish(context.Background(), testEvent{T: "a", K: "k"})
	select {
	case key := <-done:
		if key != "k" {
			t.Fatalf("unexpected key %q", key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestMemory_PublishAfterClose(t *testing.T) {
	bus := NewMemory()
	_ = bus.Close()
	if err := bus.Publish(context.Background(), testEvent{T: "a", K: "1"}); err == nil {
		t.Fatal("expected error after close")
	}
}
