package employeesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/eventbus"
	"github.com/staffsync/staffsync/libs/events"
	"github.com/staffsync/staffsync/libs/syncerr"
)

// Consumer applies company-originated assignment events. Both operations set
// state rather than toggle it, so duplicates are harmless.
type Consumer struct {
	store  Store
	logger *slog.Logger
}

func NewConsumer(store Store, logger *slog.Logger) *Consumer {
	return &Consumer{store: store, logger: logger}
}

func (c *Consumer) Register(sub eventbus.Subscriber) {
	sub.Subscribe(events.TopicEmployeeChangeCompany, c.HandleMemberAssigned)
	sub.Subscribe(events.TopicEmployeeClearCompany, c.HandleMemberCleared)
}

func (c *Consumer) HandleMemberAssigned(ctx context.Context, msg eventbus.Message) error {
	evt, err := events.Decode[events.MemberAssigned](msg.Value)
	if err != nil {
		c.logger.Error("dropping undecodable event", "topic", msg.Topic, "key", msg.Key, "err", err)
		return nil
	}
	return c.dropMissing(msg, c.ApplyMemberAssigned(ctx, evt))
}

func (c *Consumer) HandleMemberCleared(ctx context.Context, msg eventbus.Message) error {
	evt, err := events.Decode[events.MemberCleared](msg.Value)
	if err != nil {
		c.logger.Error("dropping undecodable event", "topic", msg.Topic, "key", msg.Key, "err", err)
		return nil
	}
	return c.dropMissing(msg, c.ApplyMemberCleared(ctx, evt))
}

func (c *Consumer) ApplyMemberAssigned(ctx context.Context, evt events.MemberAssigned) error {
	_, err := c.store.Mutate(ctx, evt.EmployeeID, func(e *Employee) (bool, error) {
		if e.EmployerID.Valid && e.EmployerID.UUID == evt.CompanyID {
			return false, nil
		}
		e.EmployerID = uuid.NullUUID{UUID: evt.CompanyID, Valid: true}
		return true, nil
	})
	return noTarget(evt.EmployeeID, err)
}

// ApplyMemberCleared clears the employer. When the event names the former
// company, an employee that has since moved elsewhere is left alone.
func (c *Consumer) ApplyMemberCleared(ctx context.Context, evt events.MemberCleared) error {
	_, err := c.store.Mutate(ctx, evt.EmployeeID, func(e *Employee) (bool, error) {
		if !e.EmployerID.Valid {
			return false, nil
		}
		if evt.CompanyID != nil && *evt.CompanyID != e.EmployerID.UUID {
			c.logger.Debug("ignoring stale clear", "employee_id", evt.EmployeeID, "former_company_id", *evt.CompanyID, "employer_id", e.EmployerID.UUID)
			return false, nil
		}
		e.EmployerID = uuid.NullUUID{}
		return true, nil
	})
	return noTarget(evt.EmployeeID, err)
}

func (c *Consumer) dropMissing(msg eventbus.Message, err error) error {
	if errors.Is(err, syncerr.ErrEventApplyNoTarget) {
		c.logger.Warn("dropping event for unknown employee", "topic", msg.Topic, "key", msg.Key, "err", err)
		return nil
	}
	return err
}

func noTarget(employeeID uuid.UUID, err error) error {
	if errors.Is(err, syncerr.ErrNotFound) {
		return fmt.Errorf("employee %s: %w", employeeID, syncerr.ErrEventApplyNoTarget)
	}
	return err
}
