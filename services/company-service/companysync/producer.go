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

type ProducerOptions struct {
	// ClearMembersOnDelete publishes MemberCleared for every member of a deleted company.
	ClearMembersOnDelete bool
}

// Input is a requested company state. A nil MemberIDs on update leaves members untouched.
type Input struct {
	Name      string
	Budget    string
	MemberIDs []uuid.UUID
}

// Producer applies local company mutations and tells employees about membership changes.
type Producer struct {
	store  Store
	bus    eventbus.Publisher
	logger *slog.Logger
	opts   ProducerOptions
}

func NewProducer(store Store, bus eventbus.Publisher, logger *slog.Logger, opts ProducerOptions) *Producer {
	return &Producer{store: store, bus: bus, logger: logger, opts: opts}
}

func (p *Producer) Create(ctx context.Context, in Input) (Company, error) {
	if err := p.checkNameFree(ctx, in.Name, uuid.Nil); err != nil {
		return Company{}, err
	}

	c := Company{
		ID:        uuid.New(),
		Name:      in.Name,
		Budget:    in.Budget,
		MemberIDs: slices.Clone(in.MemberIDs),
	}
	if c.MemberIDs == nil {
		c.MemberIDs = []uuid.UUID{}
	}
	if err := p.store.Insert(ctx, c); err != nil {
		return Company{}, err
	}

	for _, employeeID := range c.MemberIDs {
		p.publish(ctx, events.MemberAssigned{EmployeeID: employeeID, CompanyID: c.ID})
	}
	return c, nil
}

// Update persists the new name and budget. When a member list is given, every
// dropped member is cleared and every listed member is (re)assigned, including
// members that were already present. Events are published only after the write
// succeeds.
func (p *Producer) Update(ctx context.Context, id uuid.UUID, in Input) (Company, error) {
	if _, err := p.store.Get(ctx, id); err != nil {
		return Company{}, err
	}
	if err := p.checkNameFree(ctx, in.Name, id); err != nil {
		return Company{}, err
	}

	var pending []eventbus.Event
	updated, err := p.store.Mutate(ctx, id, func(c *Company) (bool, error) {
		pending = pending[:0]
		c.Name = in.Name
		c.Budget = in.Budget
		if in.MemberIDs == nil {
			return true, nil
		}

		for _, employeeID := range c.MemberIDs {
			if !slices.Contains(in.MemberIDs, employeeID) {
				former := c.ID
				pending = append(pending, events.MemberCleared{EmployeeID: employeeID, CompanyID: &former})
			}
		}
		for _, employeeID := range in.MemberIDs {
			pending = append(pending, events.MemberAssigned{EmployeeID: employeeID, CompanyID: c.ID})
		}
		c.MemberIDs = slices.Clone(in.MemberIDs)
		return true, nil
	})
	if err != nil {
		return Company{}, err
	}
	for _, evt := range pending {
		p.publish(ctx, evt)
	}
	return updated, nil
}

func (p *Producer) Delete(ctx context.Context, id uuid.UUID) error {
	removed, err := p.store.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !p.opts.ClearMembersOnDelete {
		return nil
	}
	for _, employeeID := range removed.MemberIDs {
		former := removed.ID
		p.publish(ctx, events.MemberCleared{EmployeeID: employeeID, CompanyID: &former})
	}
	return nil
}

func (p *Producer) checkNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := p.store.FindByName(ctx, name)
	switch {
	case errors.Is(err, syncerr.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("find company by name: %w", err)
	case existing.ID == self:
		return nil
	default:
		return fmt.Errorf("company %q: %w", name, syncerr.ErrAlreadyExists)
	}
}

// publish never fails the caller; the local write already happened.
func (p *Producer) publish(ctx context.Context, evt eventbus.Event) {
	if err := p.bus.Publish(ctx, evt); err != nil {
		p.logger.Error("event publish failed", "topic", evt.Topic(), "key", evt.Key(), "err", err)
	}
}
