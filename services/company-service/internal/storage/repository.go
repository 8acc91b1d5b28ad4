package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/staffsync/staffsync/libs/db"
	"github.com/staffsync/staffsync/libs/syncerr"
	"github.com/staffsync/staffsync/services/company-service/companysync"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectCompany = `
	SELECT id::text, name, budget, member_ids::text[]
	FROM companies
`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (companysync.Company, error) {
	c, err := scanCompany(r.pool.QueryRow(ctx, selectCompany+` WHERE id = $1`, id.String()))
	if db.IsNotFound(err) {
		return companysync.Company{}, fmt.Errorf("company %s: %w", id, syncerr.ErrNotFound)
	}
	return c, err
}

func (r *Repository) FindByName(ctx context.Context, name string) (companysync.Company, error) {
	c, err := scanCompany(r.pool.QueryRow(ctx, selectCompany+` WHERE name = $1`, name))
	if db.IsNotFound(err) {
		return companysync.Company{}, fmt.Errorf("company %q: %w", name, syncerr.ErrNotFound)
	}
	return c, err
}

func (r *Repository) Insert(ctx context.Context, c companysync.Company) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO companies (id, name, budget, member_ids)
		VALUES ($1, $2, $3, $4::uuid[])
	`, c.ID.String(), c.Name, c.Budget, idStrings(c.MemberIDs))
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("company %q: %w", c.Name, syncerr.ErrAlreadyExists)
	}
	return err
}

// Mutate locks the row for the duration of fn.
func (r *Repository) Mutate(ctx context.Context, id uuid.UUID, fn func(*companysync.Company) (bool, error)) (companysync.Company, error) {
	var out companysync.Company
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		c, err := scanCompany(tx.QueryRow(ctx, selectCompany+` WHERE id = $1 FOR UPDATE`, id.String()))
		if db.IsNotFound(err) {
			return fmt.Errorf("company %s: %w", id, syncerr.ErrNotFound)
		}
		if err != nil {
			return err
		}

		changed, err := fn(&c)
		if err != nil {
			return err
		}
		out = c
		if !changed {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE companies
			SET name = $2, budget = $3, member_ids = $4::uuid[], updated_at = now()
			WHERE id = $1
		`, id.String(), c.Name, c.Budget, idStrings(c.MemberIDs))
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("company %q: %w", c.Name, syncerr.ErrAlreadyExists)
		}
		return err
	})
	if err != nil {
		return companysync.Company{}, err
	}
	return out, nil
}

func (r *Repository) Remove(ctx context.Context, id uuid.UUID) (companysync.Company, error) {
	c, err := scanCompany(r.pool.QueryRow(ctx, `
		DELETE FROM companies
		WHERE id = $1
		RETURNING id::text, name, budget, member_ids::text[]
	`, id.String()))
	if db.IsNotFound(err) {
		return companysync.Company{}, fmt.Errorf("company %s: %w", id, syncerr.ErrNotFound)
	}
	return c, err
}

func (r *Repository) List(ctx context.Context, offset, limit int) ([]companysync.Company, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM companies`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, selectCompany+`
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []companysync.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return out, total, nil
}

func scanCompany(row pgx.Row) (companysync.Company, error) {
	var (
		id      string
		members []string
		c       companysync.Company
	)
	if err := row.Scan(&id, &c.Name, &c.Budget, &members); err != nil {
		return companysync.Company{}, err
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return companysync.Company{}, fmt.Errorf("company id %q: %w", id, err)
	}
	if c.MemberIDs, err = parseIDs(members); err != nil {
		return companysync.Company{}, err
	}
	return c, nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("member id %q: %w", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

var _ companysync.Store = (*Repository)(nil)
