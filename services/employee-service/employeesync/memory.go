package employeesync

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/syncerr"
)

type memoryRow struct {
	employee Employee
	seq      int64
}

// MemoryStore keeps employees in process. It backs tests and STORE_DRIVER=memory.
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

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return Employee{}, fmt.Errorf("employee %s: %w", id, syncerr.ErrNotFound)
	}
	return row.employee, nil
}

func (s *MemoryStore) Insert(_ context.Context, e Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[e.ID]; ok {
		return fmt.Errorf("employee %s: %w", e.ID, syncerr.ErrAlreadyExists)
	}
	s.seq++
	s.rows[e.ID] = memoryRow{employee: e, seq: s.seq}
	return nil
}

func (s *MemoryStore) Mutate(_ context.Context, id uuid.UUID, fn func(*Employee) (bool, error)) (Employee, error) {
	l := s.keyLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	row, ok := s.rows[id]
	s.mu.Unlock()
	if !ok {
		return Employee{}, fmt.Errorf("employee %s: %w", id, syncerr.ErrNotFound)
	}

	e := row.employee
	changed, err := fn(&e)
	if err != nil {
		return Employee{}, err
	}
	if !changed {
		return row.employee, nil
	}

	e.ID = id
	s.mu.Lock()
	s.rows[id] = memoryRow{employee: e, seq: row.seq}
	s.mu.Unlock()
	return e, nil
}

func (s *MemoryStore) Remove(_ context.Context, id uuid.UUID) (Employee, error) {
	l := s.keyLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return Employee{}, fmt.Errorf("employee %s: %w", id, syncerr.ErrNotFound)
	}
	delete(s.rows, id)
	return row.employee, nil
}

func (s *MemoryStore) List(_ context.Context, offset, limit int) ([]Employee, int, error) {
	if offset < 0 || limit < 0 {
		return nil, 0, fmt.Errorf("list employees: invalid window offset=%d limit=%d", offset, limit)
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
		return []Employee{}, total, nil
	}
	end := min(offset+limit, total)
	out := make([]Employee, 0, end-offset)
	for _, row := range rows[offset:end] {
		out = append(out, row.employee)
	}
	return out, total, nil
}

var _ Store = (*MemoryStore)(nil)
