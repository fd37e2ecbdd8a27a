package db

import (
	"context"
	"errors"

	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type keyValueRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKeyValueRepository(db *gorm.DB, log *logger.Logger) ports.KeyValueRepository {
	return &keyValueRepository{db: db, log: log}
}

func (r *keyValueRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry domain.KVEntry
	if err := r.db.WithContext(ctx).Where("key = ?", key).Take(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		r.log.Errorw("kv_repo_get_failed", "key", key, "error", err)
		return "", false, err
	}
	return entry.Value, true, nil
}

func (r *keyValueRepository) Set(ctx context.Context, key, value string) error {
	entry := domain.KVEntry{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		r.log.Errorw("kv_repo_set_failed", "key", key, "error", err)
		return err
	}
	r.log.Debugw("kv_repo_set_ok", "key", key, "bytes", len(value))
	return nil
}

func (r *keyValueRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&domain.KVEntry{}).Error; err != nil {
		r.log.Errorw("kv_repo_delete_failed", "key", key, "error", err)
		return err
	}
	r.log.Infow("kv_repo_delete_ok", "key", key)
	return nil
}
