package lookup

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxInFlight bounds concurrent lookups per enrichment batch.
const maxInFlight = 8

// Employees looks up every id concurrently. The result is index-aligned with ids;
// a nil entry means that lookup failed.
func (c *Client) Employees(ctx context.Context, ids []uuid.UUID) []*EmployeeSummary {
	out := make([]*EmployeeSummary, len(ids))
	var g errgroup.Group
	g.SetLimit(maxInFlight)
	for i, id := range ids {
		g.Go(func() error {
			emp, err := c.GetEmployee(ctx, id)
			if err != nil {
				c.logger.Debug("employee enrichment skipped", "employee_id", id, "err", err)
				return nil
			}
			out[i] = &emp
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Companies resolves employers, index-aligned with ids. Unset ids and failed
// lookups yield nil; each distinct company is fetched once.
func (c *Client) Companies(ctx context.Context, ids []uuid.NullUUID) []*CompanySummary {
	unique := map[uuid.UUID]*CompanySummary{}
	for _, id := range ids {
		if id.Valid {
			unique[id.UUID] = nil
		}
	}

	type result struct {
		id  uuid.UUID
		sum *CompanySummary
	}
	results := make(chan result, len(unique))
	var g errgroup.Group
	g.SetLimit(maxInFlight)
	for id := range unique {
		g.Go(func() error {
			company, err := c.GetCompany(ctx, id)
			if err != nil {
				c.logger.Debug("company enrichment skipped", "company_id", id, "err", err)
				return nil
			}
			results <- result{id: id, sum: &company}
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	for r := range results {
		unique[r.id] = r.sum
	}

	out := make([]*CompanySummary, len(ids))
	for i, id := range ids {
		if id.Valid {
			out[i] = unique[id.UUID]
		}
	}
	return out
}
