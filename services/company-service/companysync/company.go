// Package companysync owns the company aggregate's side of the relationship:
// it publishes membership changes to employees and applies employee-originated
// membership events to companies.
package companysync

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

type Company struct {
	ID        uuid.UUID
	Name      string
	Budget    string
	MemberIDs []uuid.UUID
}

func (c Company) clone() Company {
	c.MemberIDs = slices.Clone(c.MemberIDs)
	return c
}

func (c Company) hasMember(id uuid.UUID) bool {
	return slices.Contains(c.MemberIDs, id)
}

// Store persists companies. Mutate runs fn against the locked current record and
// writes it back only when fn reports a change; concurrent mutations of one
// company are serialized. Missing records yield syncerr.ErrNotFound and name
// collisions yield syncerr.ErrAlreadyExists.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Company, error)
	FindByName(ctx context.Context, name string) (Company, error)
	Insert(ctx context.Context, c Company) error
	Mutate(ctx context.Context, id uuid.UUID, fn func(*Company) (bool, error)) (Company, error)
	Remove(ctx context.Context, id uuid.UUID) (Company, error)
	List(ctx context.Context, offset, limit int) ([]Company, int, error)
}
