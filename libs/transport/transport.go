// Package transport opens the event bus selected by configuration.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/staffsync/staffsync/libs/config"
	"github.com/staffsync/staffsync/libs/eventbus"
	"github.com/staffsync/staffsync/libs/kafkax"
	"github.com/staffsync/staffsync/libs/natsx"
	"github.com/staffsync/staffsync/libs/runtime"
)

const (
	DriverKafka  = "kafka"
	DriverNATS   = "nats"
	DriverMemory = "memory"
)

type Config struct {
	Driver  string
	Group   string // consumer group / queue group, normally the service name
	Brokers []string
	NATSURL string
}

// ConfigFrom reads EVENT_BUS, KAFKA_BROKERS, KAFKA_GROUP_ID and NATS_URL.
func ConfigFrom(src *config.Source, service string) Config {
	return Config{
		Driver:  src.String("EVENT_BUS", DriverKafka),
		Group:   src.String("KAFKA_GROUP_ID", service),
		Brokers: kafkax.SplitBrokers(src.String("KAFKA_BROKERS", "localhost:9092")),
		NATSURL: src.String("NATS_URL", "nats://localhost:4222"),
	}
}

// Open returns the bus together with a readiness check for it.
func Open(cfg Config, logger *slog.Logger) (eventbus.Bus, runtime.ReadyCheck, error) {
	switch cfg.Driver {
	case DriverKafka:
		bus, err := kafkax.NewBus(kafkax.Config{Brokers: cfg.Brokers, GroupID: cfg.Group}, logger)
		if err != nil {
			return nil, runtime.ReadyCheck{}, err
		}
		return bus, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.Brokers)}, nil
	case DriverNATS:
		bus, err := natsx.Connect(natsx.Config{
			URL:           cfg.NATSURL,
			Name:          cfg.Group,
			Queue:         cfg.Group,
			ConnTimeout:   5 * time.Second,
			MaxReconnects: -1,
		}, logger)
		if err != nil {
			return nil, runtime.ReadyCheck{}, err
		}
		return bus, runtime.ReadyCheck{Name: "nats", Check: bus.ReadyCheck}, nil
	case DriverMemory:
		logger.Warn("using in-memory event bus; events do not leave this process")
		return eventbus.NewMemory(), runtime.ReadyCheck{Name: "bus", Check: func(context.Context) error { return nil }}, nil
	default:
		return nil, runtime.ReadyCheck{}, fmt.Errorf("EVENT_BUS must be one of kafka, nats, memory (got %q)", cfg.Driver)
	}
}
