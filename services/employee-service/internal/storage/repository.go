package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/staffsync/staffsync/libs/db"
	"github.com/staffsync/staffsync/libs/syncerr"
	"github.com/staffsync/staffsync/services/employee-service/employeesync"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectEmployee = `
	SELECT id::text, first_name, last_name, phone, employer_id::text
	FROM employees
`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (employeesync.Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, selectEmployee+` WHERE id = $1`, id.String()))
	if db.IsNotFound(err) {
		return employeesync.Employee{}, fmt.Errorf("employee %s: %w", id, syncerr.ErrNotFound)
	}
	return e, err
}

func (r *Repository) Insert(ctx context.Context, e employeesync.Employee) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO employees (id, first_name, last_name, phone, employer_id)
		VALUES ($1, $2, $3, $4, $5::uuid)
	`, e.ID.String(), e.FirstName, e.LastName, e.Phone, employerParam(e.EmployerID))
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("employee %s: %w", e.ID, syncerr.ErrAlreadyExists)
	}
	return err
}

// Mutate locks the row for the duration of fn.
func (r *Repository) Mutate(ctx context.Context, id uuid.UUID, fn func(*employeesync.Employee) (bool, error)) (employeesync.Employee, error) {
	var out employeesync.Employee
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		e, err := scanEmployee(tx.QueryRow(ctx, selectEmployee+` WHERE id = $1 FOR UPDATE`, id.String()))
		if db.IsNotFound(err) {
			return fmt.Errorf("employee %s: %w", id, syncerr.ErrNotFound)
		}
		if err != nil {
			return err
		}

		changed, err := fn(&e)
		if err != nil {
			return err
		}
		out = e
		if !changed {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE employees
			SET first_name = $2, last_name = $3, phone = $4, employer_id = $5::uuid, updated_at = now()
			WHERE id = $1
		`, id.String(), e.FirstName, e.LastName, e.Phone, employerParam(e.EmployerID))
		return err
	})
	if err != nil {
		return employeesync.Employee{}, err
	}
	return out, nil
}

func (r *Repository) Remove(ctx context.Context, id uuid.UUID) (employeesync.Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, `
		DELETE FROM employees
		WHERE id = $1
		RETURNING id::text, first_name, last_name, phone, employer_id::text
	`, id.String()))
	if db.IsNotFound(err) {
		return employeesync.Employee{}, fmt.Errorf("employee %s: %w", id, syncerr.ErrNotFound)
	}
	return e, err
}

func (r *Repository) List(ctx context.Context, offset, limit int) ([]employeesync.Employee, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM employees`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, selectEmployee+`
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []employeesync.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return out, total, nil
}

func scanEmployee(row pgx.Row) (employeesync.Employee, error) {
	var (
		id       string
		employer *string
		e        employeesync.Employee
	)
	if err := row.Scan(&id, &e.FirstName, &e.LastName, &e.Phone, &employer); err != nil {
		return employeesync.Employee{}, err
	}
	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return employeesync.Employee{}, fmt.Errorf("employee id %q: %w", id, err)
	}
	if e.EmployerID, err = parseEmployer(employer); err != nil {
		return employeesync.Employee{}, err
	}
	return e, nil
}

func parseEmployer(raw *string) (uuid.NullUUID, error) {
	if raw == nil {
		return uuid.NullUUID{}, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return uuid.NullUUID{}, fmt.Errorf("employer id %q: %w", *raw, err)
	}
	return uuid.NullUUID{UUID: id, Valid: true}, nil
}

// employerParam encodes an absent employer as SQL NULL.
func employerParam(id uuid.NullUUID) *string {
	if !id.Valid {
		return nil
	}
	s := id.UUID.String()
	return &s
}

var _ employeesync.Store = (*Repository)(nil)
