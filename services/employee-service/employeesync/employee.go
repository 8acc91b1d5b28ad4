// Package employeesync owns the employee aggregate's side of the relationship:
// it publishes employer changes to companies and applies company-originated
// assignment events to employees.
package employeesync

import (
	"context"

	"github.com/google/uuid"
)

type Employee struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Phone     string
	// EmployerID is invalid when the employee belongs to no company.
	EmployerID uuid.NullUUID
}

// Store persists employees. Mutate runs fn against the locked current record and
// writes it back only when fn reports a change. Missing records yield syncerr.ErrNotFound.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Employee, error)
	Insert(ctx context.Context, e Employee) error
	Mutate(ctx context.Context, id uuid.UUID, fn func(*Employee) (bool, error)) (Employee, error)
	Remove(ctx context.Context, id uuid.UUID) (Employee, error)
	List(ctx context.Context, offset, limit int) ([]Employee, int, error)
}
