package ports

import (
	"context"

	"github.com/taskextreme/backend/internal/domain"
)

// TaskStore is the structured local store. Every write resolves only after
// its transaction has committed.
type TaskStore interface {
	Open(ctx context.Context) error
	Save(ctx context.Context, task *domain.Task) (*domain.Task, error)
	GetAll(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Close() error
}

// KeyValueRepository stores raw JSON blobs under fixed keys.
type KeyValueRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
