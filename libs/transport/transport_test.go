package transport

import (
	"io"
	"log/slog"
	"testing"

	"github.com/staffsync/staffsync/libs/config"
	"github.com/staffsync/staffsync/libs/eventbus"
)

func TestConfigFrom_Defaults(t *testing.T) {
	t.Setenv("EVENT_BUS", "")
	t.Setenv("KAFKA_GROUP_ID", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	cfg := ConfigFrom(config.New(), "company-service")
	if cfg.Driver != DriverKafka || cfg.Group != "company-service" || len(cfg.Brokers) != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bus, check, err := Open(Config{Driver: DriverMemory}, logger)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := bus.(*eventbus.Memory); !ok || check.Check == nil {
		t.Fatalf("expected memory bus with a check, got %T", bus)
	}

	if _, _, err := Open(Config{Driver: "carrier-pigeon"}, logger); err == nil {
		t.Fatal("expected error for unknown driver")
	}

	bus, check, err = Open(Config{Driver: DriverKafka, Brokers: []string{"localhost:9092"}, Group: "g"}, logger)
	if err != nil {
		t.Fatalf("open kafka: %v", err)
	}
	defer bus.Close()
	if check.Name != "kafka" {
		t.Fatalf("unexpected check %q", check.Name)
	}
}
