// Package lookup fetches the other service's view of an aggregate for response
// enrichment. Calls are bounded by a timeout, never retried, and failures are
// reported as ErrRemoteUnavailable so callers can degrade instead of failing.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/syncerr"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultTimeout = 2 * time.Second

type CompanySummary struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Budget      string      `json:"budget"`
	EmployeeIDs []uuid.UUID `json:"employeeIds"`
}

type EmployeeSummary struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Phone     string     `json:"phone"`
	CompanyID *uuid.UUID `json:"companyId,omitempty"`
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
}

type Option func(*Client)

// WithCache caches successful lookups for the configured TTL.
func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.http = h }
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout: timeout,
		ttl:     cfg.CacheTTL,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetCompany(ctx context.Context, id uuid.UUID) (CompanySummary, error) {
	var out CompanySummary
	err := c.get(ctx, "companies", id, &out)
	return out, err
}

func (c *Client) GetEmployee(ctx context.Context, id uuid.UUID) (EmployeeSummary, error) {
	var out EmployeeSummary
	err := c.get(ctx, "employees", id, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, resource string, id uuid.UUID, out any) error {
	key := cacheKey(resource, id)
	if c.cache != nil {
		if raw, ok, err := c.cache.Get(ctx, key); err != nil {
			c.logger.Warn("lookup cache read failed", "key", key, "err", err)
		} else if ok && json.Unmarshal(raw, out) == nil {
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/%s", c.base, resource, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", syncerr.ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: get %s/%s: %w", syncerr.ErrRemoteUnavailable, resource, id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w: %s/%s", syncerr.ErrRemoteUnavailable, syncerr.ErrNotFound, resource, id)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: get %s/%s: status %d", syncerr.ErrRemoteUnavailable, resource, id, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read %s/%s: %w", syncerr.ErrRemoteUnavailable, resource, id, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s/%s: %w", syncerr.ErrRemoteUnavailable, resource, id, err)
	}

	if c.cache != nil && c.ttl > 0 {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("lookup cache write failed", "key", key, "err", err)
		}
	}
	return nil
}

func cacheKey(resource string, id uuid.UUID) string {
	return "lookup:" + resource + ":" + id.String()
}
