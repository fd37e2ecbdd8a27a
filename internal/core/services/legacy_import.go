package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/infrastructure/notify"
)

type LegacyImporterConfig struct {
	KV       ports.KeyValueRepository
	Tasks    ports.TaskService
	Notifier ports.Notifier
	Logger   *logger.Logger
}

// LegacyImporter moves the serialized task array from the kv store into the
// structured store. The checked map marks tasks as completed.
type LegacyImporter struct {
	kv       ports.KeyValueRepository
	tasks    ports.TaskService
	notifier ports.Notifier
	logger   *logger.Logger
}

func NewLegacyImporter(cfg LegacyImporterConfig) *LegacyImporter {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &LegacyImporter{
		kv:       cfg.KV,
		tasks:    cfg.Tasks,
		notifier: notify.OrDefault(cfg.Notifier, log),
		logger:   log,
	}
}

// Run imports every legacy task and removes the blob once all of them are
// saved. It returns the number of tasks imported.
func (i *LegacyImporter) Run(ctx context.Context) (int, error) {
	raw, ok, err := i.kv.Get(ctx, domain.KeyTasks)
	if err != nil {
		return 0, err
	}
	if !ok || raw == "" {
		i.logger.Infow("legacy_import_skipped", "reason", "no_blob")
		return 0, nil
	}

	var tasks []domain.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		i.logger.Errorw("legacy_import_parse_failed", "error", err)
		return 0, fmt.Errorf("%w: legacy task blob: %v", ErrTaskInvalidInput, err)
	}

	checked := map[string]bool{}
	if rawChecked, ok, err := i.kv.Get(ctx, domain.KeyChecked); err == nil && ok {
		if err := json.Unmarshal([]byte(rawChecked), &checked); err != nil {
			i.logger.Warnw("legacy_import_checked_parse_failed", "error", err)
		}
	}

	imported := 0
	for idx := range tasks {
		task := tasks[idx]
		if task.ID == "" {
			i.logger.Warnw("legacy_import_task_skipped", "index", idx, "reason", "missing_id")
			continue
		}
		if checked[task.ID] {
			task.Completed = true
			task.Status = domain.TaskStatusDone
		}
		if task.Status == "" {
			task.Status = task.Column()
		}
		if _, err := i.tasks.SaveTask(ctx, &task); err != nil {
			i.logger.Errorw("legacy_import_task_failed", "id", task.ID, "imported", imported, "error", err)
			return imported, err
		}
		imported++
	}

	if err := i.kv.Delete(ctx, domain.KeyTasks); err != nil {
		return imported, err
	}
	i.logger.Infow("legacy_import_done", "imported", imported, "total", len(tasks))
	if imported > 0 {
		i.notifier.Notify(fmt.Sprintf("Imported %d tasks", imported), domain.SeverityInfo)
	}
	return imported, nil
}
