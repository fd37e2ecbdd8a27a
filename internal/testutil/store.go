package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taskextreme/backend/internal/domain"
)

var ErrStoreFailed = errors.New("fake store failure")

// MemoryStore is a TaskStore kept in a map. Fail makes every write return
// ErrStoreFailed wrapped in domain.ErrTransaction.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
	Fail  bool
	Now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]domain.Task), Now: time.Now}
}

func (s *MemoryStore) SetFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fail = fail
}

func (s *MemoryStore) Open(ctx context.Context) error { return nil }
func (s *MemoryStore) Close() error                   { return nil }

func (s *MemoryStore) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, errors.Join(domain.ErrTransaction, ErrStoreFailed)
	}
	stored := *task
	now := s.Now().UTC()
	if existing, ok := s.tasks[task.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.tasks[task.ID] = stored
	return &stored, nil
}

func (s *MemoryStore) GetAll(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error) {
	s.mu.Lock()
	all := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		all = append(all, t)
	}
	s.mu.Unlock()
	return query.Apply(all), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return errors.Join(domain.ErrTransaction, ErrStoreFailed)
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return errors.Join(domain.ErrTransaction, ErrStoreFailed)
	}
	s.tasks = make(map[string]domain.Task)
	return nil
}

// Get returns a stored task directly, bypassing queries.
func (s *MemoryStore) Get(id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// MemoryKV is a KeyValueRepository kept in a map. After SetFail(true)
// every Set returns ErrStoreFailed.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
	fail   bool
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return ErrStoreFailed
	}
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
