package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/infrastructure/notify"
)

const (
	msgAllSynced    = "All changes have been synced"
	msgSaveFailed   = "Failed to save task"
	msgDeleteFailed = "Failed to delete task"
)

// NoopSyncer accepts every operation. It stands in until a remote target
// is configured.
type NoopSyncer struct{}

func (NoopSyncer) SyncSave(ctx context.Context, task *domain.Task) error { return nil }
func (NoopSyncer) SyncDelete(ctx context.Context, id string) error       { return nil }

type OfflineQueueConfig struct {
	Store    ports.TaskStore
	Syncer   ports.RemoteSyncer
	Notifier ports.Notifier
	Logger   *logger.Logger
	Clock    func() time.Time
	// Checked, when set, is kept in step with local writes.
	Checked ports.CheckedTracker
	// Online is the state assumed before the first connectivity report.
	Online bool
}

// OfflineQueue applies task writes to the local store and keeps the ones
// that could not reach the remote side, replaying them oldest first.
type OfflineQueue struct {
	store    ports.TaskStore
	syncer   ports.RemoteSyncer
	notifier ports.Notifier
	checked  ports.CheckedTracker
	logger   *logger.Logger
	now      func() time.Time

	// writeMu orders local writes and their place in the queue.
	writeMu sync.Mutex

	mu       sync.Mutex
	pending  []domain.PendingOperation
	quiet    map[uint64]bool
	seq      uint64
	online   bool
	draining bool
}

func NewOfflineQueue(cfg OfflineQueueConfig) *OfflineQueue {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	syncer := cfg.Syncer
	if syncer == nil {
		syncer = NoopSyncer{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &OfflineQueue{
		store:    cfg.Store,
		syncer:   syncer,
		notifier: notify.OrDefault(cfg.Notifier, log),
		checked:  cfg.Checked,
		logger:   log,
		now:      clock,
		quiet:    make(map[uint64]bool),
		online:   cfg.Online,
	}
}

var _ ports.TaskService = (*OfflineQueue)(nil)

// IsOnline reports the last connectivity state the queue was told about.
func (q *OfflineQueue) IsOnline() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}

// SaveTask writes the task locally and either syncs it or queues it.
func (q *OfflineQueue) SaveTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil || task.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrTaskInvalidInput)
	}

	q.writeMu.Lock()
	saved, err := q.store.Save(ctx, task)
	if err != nil {
		copied := *task
		q.enqueue(domain.OperationSave, &copied, task.ID, false)
		q.writeMu.Unlock()
		q.logger.Errorw("queue_save_local_failed", "id", task.ID, "error", err)
		q.notifier.Notify(msgSaveFailed, domain.SeverityError)
		return nil, err
	}
	q.supersede(saved.ID)
	immediate := q.enqueue(domain.OperationSave, saved, saved.ID, true)
	q.writeMu.Unlock()

	q.trackChecked(ctx, domain.OperationSave, saved, saved.ID)
	q.kick(ctx, immediate)
	return saved, nil
}

// DeleteTask removes the task locally and either syncs or queues the delete.
func (q *OfflineQueue) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrTaskInvalidInput)
	}

	q.writeMu.Lock()
	if err := q.store.Delete(ctx, id); err != nil {
		q.enqueue(domain.OperationDelete, nil, id, false)
		q.writeMu.Unlock()
		q.logger.Errorw("queue_delete_local_failed", "id", id, "error", err)
		q.notifier.Notify(msgDeleteFailed, domain.SeverityError)
		return err
	}
	q.supersede(id)
	immediate := q.enqueue(domain.OperationDelete, nil, id, true)
	q.writeMu.Unlock()

	q.trackChecked(ctx, domain.OperationDelete, nil, id)
	q.kick(ctx, immediate)
	return nil
}

func (q *OfflineQueue) GetAllTasks(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error) {
	return q.store.GetAll(ctx, query)
}

func (q *OfflineQueue) ClearTasks(ctx context.Context) error {
	return q.store.Clear(ctx)
}

// kick starts the remote step for a fresh local write. With nothing queued
// ahead of it the caller waits for its own sync; behind a backlog it is
// left to a background scan.
func (q *OfflineQueue) kick(ctx context.Context, immediate bool) {
	if !q.IsOnline() {
		return
	}
	if !immediate {
		go q.Drain(context.WithoutCancel(ctx))
		return
	}
	if err := q.Drain(ctx); err != nil {
		q.logger.Warnw("queue_sync_failed_queued", "error", err)
	}
}

// enqueue appends an operation and reports whether it went onto an empty
// queue while online. Writes made while online are quiet: syncing them is
// not news unless their remote step fails.
func (q *OfflineQueue) enqueue(kind domain.OperationKind, task *domain.Task, id string, localApplied bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	empty := len(q.pending) == 0
	q.seq++
	q.pending = append(q.pending, domain.PendingOperation{
		Seq:          q.seq,
		Kind:         kind,
		Task:         task,
		TaskID:       id,
		EnqueuedAt:   q.now(),
		LocalApplied: localApplied,
	})
	if localApplied && q.online {
		q.quiet[q.seq] = true
	}
	q.logger.Debugw("queue_enqueued", "kind", kind, "id", id, "seq", q.seq, "pending", len(q.pending))
	return localApplied && q.online && empty
}

// supersede settles queued local writes of id that never landed. A newer
// local write has already replaced them, so a replay must not write their
// payload again. Their remote step still runs in order.
func (q *OfflineQueue) supersede(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.pending {
		op := &q.pending[i]
		if op.TaskID == id && !op.LocalApplied {
			op.LocalApplied = true
			q.logger.Infow("queue_local_superseded", "kind", op.Kind, "id", id, "seq", op.Seq)
		}
	}
}

func (q *OfflineQueue) trackChecked(ctx context.Context, kind domain.OperationKind, task *domain.Task, id string) {
	if q.checked == nil {
		return
	}
	var err error
	if kind == domain.OperationDelete {
		err = q.checked.ForgetChecked(ctx, id)
	} else {
		err = q.checked.TrackChecked(ctx, task)
	}
	if err != nil {
		q.logger.Warnw("queue_checked_update_failed", "kind", kind, "id", id, "error", err)
	}
}

// Pending returns a snapshot of the queue, oldest first.
func (q *OfflineQueue) Pending() []domain.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := append([]domain.PendingOperation(nil), q.pending...)
	sortPending(out)
	return out
}

func sortPending(ops []domain.PendingOperation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if !ops[i].EnqueuedAt.Equal(ops[j].EnqueuedAt) {
			return ops[i].EnqueuedAt.Before(ops[j].EnqueuedAt)
		}
		return ops[i].Seq < ops[j].Seq
	})
}

// HandleStateChange is the connectivity listener: entering Online drains.
func (q *OfflineQueue) HandleStateChange(ctx context.Context, from, to domain.ConnectivityState) {
	q.mu.Lock()
	q.online = to == domain.StateOnline
	q.mu.Unlock()

	if to == domain.StateOnline && from != domain.StateOnline {
		if err := q.Drain(ctx); err != nil {
			q.logger.Warnw("queue_drain_on_reconnect_failed", "error", err)
		}
	}
}

// Drain replays queued operations oldest first. It stops at the first
// failure and leaves that operation and everything after it queued. Only
// one scan runs at a time; a concurrent call returns nil immediately and
// the running scan picks up whatever was queued meanwhile.
func (q *OfflineQueue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if !q.online || q.draining || len(q.pending) == 0 {
		q.mu.Unlock()
		return nil
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	processed, announced := 0, false
	for {
		q.mu.Lock()
		if !q.online || len(q.pending) == 0 {
			remaining := len(q.pending)
			q.mu.Unlock()
			q.logger.Infow("queue_drain_done", "processed", processed, "remaining", remaining)
			if remaining == 0 && announced {
				q.notifier.Notify(msgAllSynced, domain.SeveritySuccess)
			}
			return nil
		}
		sortPending(q.pending)
		snapshot := append([]domain.PendingOperation(nil), q.pending...)
		q.mu.Unlock()

		q.logger.Debugw("queue_drain_scan", "pending", len(snapshot))
		for i := range snapshot {
			op := snapshot[i]
			if err := q.replay(ctx, &op); err != nil {
				q.mu.Lock()
				delete(q.quiet, op.Seq)
				q.mu.Unlock()
				q.logger.Errorw("queue_drain_halted",
					"kind", op.Kind,
					"id", op.TaskID,
					"seq", op.Seq,
					"processed", processed,
					"error", err,
				)
				return fmt.Errorf("%w: %s %s: %v", ErrQueueProcessing, op.Kind, op.TaskID, err)
			}
			if !q.remove(op.Seq) {
				announced = true
			}
			processed++
		}
	}
}

// replay finishes one operation: the local write if it never landed, then
// the remote step. A failed local retry keeps the operation queued.
func (q *OfflineQueue) replay(ctx context.Context, op *domain.PendingOperation) error {
	applied, err := q.reapplyLocal(ctx, op)
	if err != nil {
		return err
	}
	if applied {
		q.trackChecked(ctx, op.Kind, op.Task, op.TaskID)
	}
	return q.syncRemote(ctx, op)
}

// reapplyLocal runs the local write of op unless it has landed or been
// superseded since the scan took its snapshot.
func (q *OfflineQueue) reapplyLocal(ctx context.Context, op *domain.PendingOperation) (bool, error) {
	q.writeMu.Lock()
	defer q.writeMu.Unlock()

	if q.localApplied(op.Seq) {
		return false, nil
	}
	switch op.Kind {
	case domain.OperationSave:
		saved, err := q.store.Save(ctx, op.Task)
		if err != nil {
			return false, err
		}
		op.Task = saved
	case domain.OperationDelete:
		if err := q.store.Delete(ctx, op.TaskID); err != nil {
			return false, err
		}
	}
	q.markLocalApplied(op.Seq, op.Task)
	return true, nil
}

func (q *OfflineQueue) syncRemote(ctx context.Context, op *domain.PendingOperation) error {
	switch op.Kind {
	case domain.OperationSave:
		return q.syncer.SyncSave(ctx, op.Task)
	case domain.OperationDelete:
		return q.syncer.SyncDelete(ctx, op.TaskID)
	}
	return fmt.Errorf("unknown operation kind %q", op.Kind)
}

func (q *OfflineQueue) localApplied(seq uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.pending {
		if q.pending[i].Seq == seq {
			return q.pending[i].LocalApplied
		}
	}
	return true
}

func (q *OfflineQueue) markLocalApplied(seq uint64, task *domain.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.pending {
		if q.pending[i].Seq == seq {
			q.pending[i].LocalApplied = true
			if task != nil {
				q.pending[i].Task = task
			}
			return
		}
	}
}

// remove drops a finished operation and reports whether it was quiet.
func (q *OfflineQueue) remove(seq uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	quiet := q.quiet[seq]
	delete(q.quiet, seq)
	for i := range q.pending {
		if q.pending[i].Seq == seq {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	return quiet
}
