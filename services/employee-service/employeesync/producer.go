package employeesync

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/eventbus"
	"github.com/staffsync/staffsync/libs/events"
)

type ProducerOptions struct {
	// ClearEmitsRemoval publishes CompanyMemberRemoved when an update clears the employer.
	ClearEmitsRemoval bool
}

// Input is a requested employee state. An invalid EmployerID clears the employer.
type Input struct {
	FirstName  string
	LastName   string
	Phone      string
	EmployerID uuid.NullUUID
}

// Producer applies local employee mutations and tells companies about employer changes.
type Producer struct {
	store  Store
	bus    eventbus.Publisher
	logger *slog.Logger
	opts   ProducerOptions
}

func NewProducer(store Store, bus eventbus.Publisher, logger *slog.Logger, opts ProducerOptions) *Producer {
	return &Producer{store: store, bus: bus, logger: logger, opts: opts}
}

func (p *Producer) Create(ctx context.Context, in Input) (Employee, error) {
	e := Employee{
		ID:         uuid.New(),
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Phone:      in.Phone,
		EmployerID: in.EmployerID,
	}
	if err := p.store.Insert(ctx, e); err != nil {
		return Employee{}, err
	}
	if e.EmployerID.Valid {
		p.publish(ctx, events.CompanyMemberAdded{CompanyID: e.EmployerID.UUID, EmployeeID: e.ID})
	}
	return e, nil
}

// Update moves the employee between companies: the former employer (if any) is
// told to drop the employee before the new one is told to add it. Clearing the
// employer is silent unless ClearEmitsRemoval is set.
func (p *Producer) Update(ctx context.Context, id uuid.UUID, in Input) (Employee, error) {
	var pending []eventbus.Event
	updated, err := p.store.Mutate(ctx, id, func(e *Employee) (bool, error) {
		pending = pending[:0]
		e.FirstName = in.FirstName
		e.LastName = in.LastName
		e.Phone = in.Phone

		stored := e.EmployerID
		switch {
		case in.EmployerID.Valid && in.EmployerID != stored:
			if stored.Valid {
				pending = append(pending, events.CompanyMemberRemoved{CompanyID: stored.UUID, EmployeeID: e.ID})
			}
			pending = append(pending, events.CompanyMemberAdded{CompanyID: in.EmployerID.UUID, EmployeeID: e.ID})
		case !in.EmployerID.Valid && stored.Valid && p.opts.ClearEmitsRemoval:
			pending = append(pending, events.CompanyMemberRemoved{CompanyID: stored.UUID, EmployeeID: e.ID})
		}
		e.EmployerID = in.EmployerID
		return true, nil
	})
	if err != nil {
		return Employee{}, err
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
	if removed.EmployerID.Valid {
		p.publish(ctx, events.CompanyMemberRemoved{CompanyID: removed.EmployerID.UUID, EmployeeID: removed.ID})
	}
	return nil
}

// publish never fails the caller; the local write already happened.
func (p *Producer) publish(ctx context.Context, evt eventbus.Event) {
	if err := p.bus.Publish(ctx, evt); err != nil {
		p.logger.Error("event publish failed", "topic", evt.Topic(), "key", evt.Key(), "err", err)
	}
}
