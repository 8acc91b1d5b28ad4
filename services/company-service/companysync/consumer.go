package companysync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/eventbus"
	"github.com/staffsync/staffsync/libs/events"
	"github.com/staffsync/staffsync/libs/syncerr"
)

// Consumer applies employee-originated membership events. Both operations are
// idempotent, so duplicate or replayed deliveries are harmless.
type Consumer struct {
	store  Store
	logger *slog.Logger
}

func NewConsumer(store Store, logger *slog.Logger) *Consumer {
	return &Consumer{store: store, logger: logger}
}

func (c *Consumer) Register(sub eventbus.Subscriber) {
	sub.Subscribe(events.TopicCompanyAddEmployee, c.HandleMemberAdded)
	sub.Subscribe(events.TopicCompanyRemoveEmployee, c.HandleMemberRemoved)
}

func (c *Consumer) HandleMemberAdded(ctx context.Context, msg eventbus.Message) error {
	evt, err := events.Decode[events.CompanyMemberAdded](msg.Value)
	if err != nil {
		c.logger.Error("dropping undecodable event", "topic", msg.Topic, "key", msg.Key, "err", err)
		return nil
	}
	return c.dropMissing(msg, c.ApplyMemberAdded(ctx, evt))
}

func (c *Consumer) HandleMemberRemoved(ctx context.Context, msg eventbus.Message) error {
	evt, err := events.Decode[events.CompanyMemberRemoved](msg.Value)
	if err != nil {
		c.logger.Error("dropping undecodable event", "topic", msg.Topic, "key", msg.Key, "err", err)
		return nil
	}
	return c.dropMissing(msg, c.ApplyMemberRemoved(ctx, evt))
}

// ApplyMemberAdded appends the employee unless already listed.
func (c *Consumer) ApplyMemberAdded(ctx context.Context, evt events.CompanyMemberAdded) error {
	_, err := c.store.Mutate(ctx, evt.CompanyID, func(co *Company) (bool, error) {
		if co.hasMember(evt.EmployeeID) {
			return false, nil
		}
		co.MemberIDs = append(co.MemberIDs, evt.EmployeeID)
		return true, nil
	})
	return noTarget(evt.CompanyID, err)
}

// ApplyMemberRemoved drops the first occurrence of the employee.
func (c *Consumer) ApplyMemberRemoved(ctx context.Context, evt events.CompanyMemberRemoved) error {
	_, err := c.store.Mutate(ctx, evt.CompanyID, func(co *Company) (bool, error) {
		i := slices.Index(co.MemberIDs, evt.EmployeeID)
		if i < 0 {
			return false, nil
		}
		co.MemberIDs = slices.Delete(co.MemberIDs, i, i+1)
		return true, nil
	})
	return noTarget(evt.CompanyID, err)
}

func (c *Consumer) dropMissing(msg eventbus.Message, err error) error {
	if errors.Is(err, syncerr.ErrEventApplyNoTarget) {
		c.logger.Warn("dropping event for unknown company", "topic", msg.Topic, "key", msg.Key, "err", err)
		return nil
	}
	return err
}

func noTarget(companyID uuid.UUID, err error) error {
	if errors.Is(err, syncerr.ErrNotFound) {
		return fmt.Errorf("company %s: %w", companyID, syncerr.ErrEventApplyNoTarget)
	}
	return err
}
