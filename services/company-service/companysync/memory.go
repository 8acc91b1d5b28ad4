package companysync

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/syncerr"
)

type memoryRow struct {
	company Company
	seq     int64
}

// MemoryStore keeps companies in process. It backs tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]memoryRow
	locks map[uuid.UUID]*sync.Mutex
	seq   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  map[uuid.UUID]memoryRow{},
		locks: map[uuid.UUID]*sync.Mutex{},
	}
}

func (s *MemoryStore) keyLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return Company{}, fmt.Errorf("company %s: %w", id, syncerr.ErrNotFound)
	}
	return row.company.clone(), nil
}

func (s *MemoryStore) FindByName(_ context.Context, name string) (Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.company.Name == name {
			return row.company.clone(), nil
		}
	}
	return Company{}, fmt.Errorf("company %q: %w", name, syncerr.ErrNotFound)
}

func (s *MemoryStore) Insert(_ context.Context, c Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[c.ID]; ok {
		return fmt.Errorf("company %s: %w", c.ID, syncerr.ErrAlreadyExists)
	}
	if s.nameTakenLocked(c.Name, c.ID) {
		return fmt.Errorf("company %q: %w", c.Name, syncerr.ErrAlreadyExists)
	}
	s.seq++
	s.rows[c.ID] = memoryRow{company: c.clone(), seq: s.seq}
	return nil
}

func (s *MemoryStore) Mutate(_ context.Context, id uuid.UUID, fn func(*Company) (bool, error)) (Company, error) {
	l := s.keyLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	row, ok := s.rows[id]
	s.mu.Unlock()
	if !ok {
		return Company{}, fmt.Errorf("company %s: %w", id, syncerr.ErrNotFound)
	}

	c := row.company.clone()
	changed, err := fn(&c)
	if err != nil {
		return Company{}, err
	}
	if !changed {
		return row.company.clone(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTakenLocked(c.Name, id) {
		return Company{}, fmt.Errorf("company %q: %w", c.Name, syncerr.ErrAlreadyExists)
	}
	c.ID = id
	s.rows[id] = memoryRow{company: c.clone(), seq: row.seq}
	return c, nil
}

func (s *MemoryStore) Remove(_ context.Context, id uuid.UUID) (Company, error) {
	l := s.keyLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return Company{}, fmt.Errorf("company %s: %w", id, syncerr.ErrNotFound)
	}
	delete(s.rows, id)
	return row.company, nil
}

func (s *MemoryStore) List(_ context.Context, offset, limit int) ([]Company, int, error) {
	if offset < 0 || limit < 0 {
		return nil, 0, fmt.Errorf("list companys: invalid window offset=%d limit=%d", offset, limit)
	}

	s.mu.Lock()
	rows := make([]memoryRow, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, row)
	}
	s.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	total := len(rows)
	if offset >= total {
		return []Company{}, total, nil
	}
	end := min(offset+limit, total)
	out := make([]Company, 0, end-offset)
	for _, row := range rows[offset:end] {
		out = append(out, row.company.clone())
	}
	return out, total, nil
}

func (s *MemoryStore) nameTakenLocked(name string, except uuid.UUID) bool {
	for id, row := range s.rows {
		if id != except && row.company.Name == name {
			return true
		}
	}
	return false
}

var _ Store = (*MemoryStore)(nil)
