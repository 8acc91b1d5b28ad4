// Command event-sim publishes a single relationship event for manual testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/config"
	"github.com/staffsync/staffsync/libs/eventbus"
	"github.com/staffsync/staffsync/libs/events"
	"github.com/staffsync/staffsync/libs/kafkax"
	"github.com/staffsync/staffsync/libs/transport"
)

func main() {
	src := config.New()
	var (
		driver   = flag.String("bus", src.String("EVENT_BUS", transport.DriverKafka), "event bus: kafka or nats")
		brokers  = flag.String("brokers", src.String("KAFKA_BROKERS", "localhost:9092"), "comma separated kafka brokers")
		natsURL  = flag.String("nats-url", src.String("NATS_URL", "nats://localhost:4222"), "nats server url")
		topic    = flag.String("topic", events.TopicEmployeeChangeCompany, "event topic")
		employee = flag.String("employee-id", "", "employee id")
		company  = flag.String("company-id", "", "company id (optional for "+events.TopicEmployeeClearCompany+")")
	)
	flag.Parse()

	evt, err := buildEvent(*topic, *employee, *company)
	if err != nil {
		fatal(err.Error())
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus, _, err := transport.Open(transport.Config{
		Driver:  *driver,
		Group:   "event-sim",
		Brokers: kafkax.SplitBrokers(*brokers),
		NATSURL: *natsURL,
	}, logger)
	if err != nil {
		fatal(err.Error())
	}
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := bus.Publish(ctx, evt); err != nil {
		fatal(err.Error())
	}
	fmt.Printf("published topic=%s key=%s\n", evt.Topic(), evt.Key())
}

func buildEvent(topic, employeeID, companyID string) (eventbus.Event, error) {
	employee, err := parseID("employee-id", employeeID, true)
	if err != nil {
		return nil, err
	}
	company, err := parseID("company-id", companyID, topic != events.TopicEmployeeClearCompany)
	if err != nil {
		return nil, err
	}

	switch topic {
	case events.TopicEmployeeChangeCompany:
		return events.MemberAssigned{EmployeeID: employee, CompanyID: company}, nil
	case events.TopicEmployeeClearCompany:
		evt := events.MemberCleared{EmployeeID: employee}
		if company != uuid.Nil {
			evt.CompanyID = &company
		}
		return evt, nil
	case events.TopicCompanyAddEmployee:
		return events.CompanyMemberAdded{CompanyID: company, EmployeeID: employee}, nil
	case events.TopicCompanyRemoveEmployee:
		return events.CompanyMemberRemoved{CompanyID: company, EmployeeID: employee}, nil
	default:
		return nil, fmt.Errorf("unsupported topic: %s", topic)
	}
}

func parseID(name, raw string, required bool) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return uuid.Nil, fmt.Errorf("%s is required", name)
		}
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", name, err)
	}
	return id, nil
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
