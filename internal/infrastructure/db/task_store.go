package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/taskextreme/backend/internal/config"
	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/infrastructure/notify"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const outdatedMessage = "Please restart to update the database"

var errSchemaChanged = errors.New("schema changed by another process")

// indexedColumns are the filter fields pushed down to SQL.
var indexedColumns = map[string]string{
	domain.FieldCategory:  "category",
	domain.FieldPriority:  "priority",
	domain.FieldDueDate:   "due_date",
	domain.FieldStatus:    "status",
	domain.FieldCompleted: "completed",
}

type TaskStoreConfig struct {
	// Conn is an already dialed connection. When nil the store dials
	// Database on first Open.
	Conn     *gorm.DB
	Database config.DatabaseConfig
	Logger   *logger.Logger
	Notifier ports.Notifier
	Clock    func() time.Time
}

// TaskStore wraps the tasks table. Open is shared between concurrent callers
// and every other method opens lazily.
type TaskStore struct {
	cfg      config.DatabaseConfig
	conn     *gorm.DB
	log      *logger.Logger
	notifier ports.Notifier
	now      func() time.Time

	open singleflight.Group

	mu       sync.RWMutex
	db       *gorm.DB
	version  int
	outdated bool
}

func NewTaskStore(cfg TaskStoreConfig) *TaskStore {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TaskStore{
		cfg:      cfg.Database,
		conn:     cfg.Conn,
		log:      log,
		notifier: notify.OrDefault(cfg.Notifier, log),
		now:      clock,
	}
}

var _ ports.TaskStore = (*TaskStore)(nil)

func (s *TaskStore) Open(ctx context.Context) error {
	_, err := s.handle(ctx)
	return err
}

// DB exposes the opened connection so sibling repositories share it.
func (s *TaskStore) DB(ctx context.Context) (*gorm.DB, error) {
	return s.handle(ctx)
}

// Version is the schema version this store migrated to.
func (s *TaskStore) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *TaskStore) handle(ctx context.Context) (*gorm.DB, error) {
	s.mu.RLock()
	database, outdated := s.db, s.outdated
	s.mu.RUnlock()
	if outdated {
		return nil, domain.ErrStoreOutdated
	}
	if database != nil {
		return database, nil
	}

	v, err, shared := s.open.Do("open", func() (interface{}, error) {
		s.mu.RLock()
		if s.db != nil {
			defer s.mu.RUnlock()
			return s.db, nil
		}
		s.mu.RUnlock()

		conn := s.conn
		if conn == nil {
			dialed, err := NewConnection(s.cfg)
			if err != nil {
				return nil, err
			}
			conn = dialed
		}
		version, err := RunMigrations(conn.WithContext(ctx))
		if err != nil {
			if s.conn == nil {
				_ = Close(conn)
			}
			return nil, err
		}

		s.mu.Lock()
		s.db = conn
		s.version = version
		s.mu.Unlock()
		s.log.Infow("task_store_open_ok", "version", version)
		return conn, nil
	})
	if err != nil {
		s.log.Errorw("task_store_open_failed", "error", err, "shared", shared)
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreOpen, err)
	}
	return v.(*gorm.DB), nil
}

// transaction runs fn inside one transaction and reports failures as kind.
// It returns only after the transaction has committed or rolled back.
func (s *TaskStore) transaction(ctx context.Context, kind error, fn func(tx *gorm.DB) error) error {
	database, err := s.handle(ctx)
	if err != nil {
		return err
	}

	err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := CurrentVersion(tx)
		if err != nil {
			return err
		}
		if current > s.Version() {
			return errSchemaChanged
		}
		return fn(tx)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, errSchemaChanged) {
		s.invalidate()
		return domain.ErrStoreOutdated
	}
	return fmt.Errorf("%w: %v", kind, err)
}

// invalidate closes the handle after another process upgraded the schema.
func (s *TaskStore) invalidate() {
	s.mu.Lock()
	database := s.db
	s.db = nil
	s.outdated = true
	s.mu.Unlock()

	if database != nil {
		if err := Close(database); err != nil {
			s.log.Warnw("task_store_close_failed", "error", err)
		}
	}
	s.log.Warnw("task_store_outdated", "version", s.Version())
	s.notifier.Notify(outdatedMessage, domain.SeverityInfo)
}

func (s *TaskStore) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil || task.ID == "" {
		return nil, fmt.Errorf("%w: task id is required", domain.ErrTransaction)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	toSave := *task
	toSave.UpdatedAt = now

	err := s.transaction(ctx, domain.ErrTransaction, func(tx *gorm.DB) error {
		var existing domain.Task
		err := tx.Select("id", "created_at").Where("id = ?", task.ID).Take(&existing).Error
		switch {
		case err == nil && !existing.CreatedAt.IsZero():
			toSave.CreatedAt = existing.CreatedAt
		case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
			if toSave.CreatedAt.IsZero() {
				toSave.CreatedAt = now
			}
		default:
			return err
		}
		return tx.Save(&toSave).Error
	})
	if err != nil {
		s.log.Errorw("task_store_save_failed", "id", task.ID, "error", err)
		return nil, err
	}

	s.log.Infow("task_store_save_ok", "id", toSave.ID)
	return &toSave, nil
}

func (s *TaskStore) GetAll(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.transaction(ctx, domain.ErrRead, func(tx *gorm.DB) error {
		return pushDownFilter(tx, query.Filter).Order("created_at, id").Find(&tasks).Error
	})
	if err != nil {
		s.log.Errorw("task_store_get_all_failed", "error", err)
		return nil, err
	}

	result := query.Apply(tasks)
	s.log.Debugw("task_store_get_all_ok", "read", len(tasks), "returned", len(result))
	return result, nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	err := s.transaction(ctx, domain.ErrTransaction, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&domain.Task{}).Error
	})
	if err != nil {
		s.log.Errorw("task_store_delete_failed", "id", id, "error", err)
		return err
	}
	s.log.Infow("task_store_delete_ok", "id", id)
	return nil
}

func (s *TaskStore) Clear(ctx context.Context) error {
	err := s.transaction(ctx, domain.ErrTransaction, func(tx *gorm.DB) error {
		return tx.Where("1 = 1").Delete(&domain.Task{}).Error
	})
	if err != nil {
		s.log.Errorw("task_store_clear_failed", "error", err)
		return err
	}
	s.log.Infow("task_store_clear_ok")
	return nil
}

func (s *TaskStore) Close() error {
	s.mu.Lock()
	database := s.db
	s.db = nil
	s.mu.Unlock()
	if database == nil {
		return nil
	}
	return Close(database)
}

// pushDownFilter narrows the read with the indexed columns. Values whose
// type does not fit the column are left to the in-memory pass.
func pushDownFilter(tx *gorm.DB, filter map[string]any) *gorm.DB {
	for key, want := range filter {
		column, ok := indexedColumns[domain.CanonicalField(key)]
		if !ok || want == nil {
			continue
		}
		if column == "completed" {
			switch w := want.(type) {
			case bool:
				tx = tx.Where("completed = ?", w)
			case string:
				if b, err := strconv.ParseBool(w); err == nil {
					tx = tx.Where("completed = ?", b)
				}
			}
			continue
		}
		switch w := want.(type) {
		case string:
			tx = tx.Where(column+" = ?", w)
		case domain.TaskStatus:
			tx = tx.Where(column+" = ?", string(w))
		case domain.Priority:
			tx = tx.Where(column+" = ?", string(w))
		}
	}
	return tx
}
