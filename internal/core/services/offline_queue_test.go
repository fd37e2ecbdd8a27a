package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/testutil"
)

type queueFixture struct {
	queue    *OfflineQueue
	store    *testutil.MemoryStore
	syncer   *testutil.FakeSyncer
	recorder *testutil.Recorder
}

func newQueueFixture(online bool) *queueFixture {
	clock := testutil.NewStepClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	store := testutil.NewMemoryStore()
	store.Now = clock.Now
	syncer := &testutil.FakeSyncer{}
	rec := &testutil.Recorder{}
	q := NewOfflineQueue(OfflineQueueConfig{
		Store:    store,
		Syncer:   syncer,
		Notifier: rec,
		Clock:    clock.Now,
		Online:   online,
	})
	return &queueFixture{queue: q, store: store, syncer: syncer, recorder: rec}
}

func pendingIDs(ops []domain.PendingOperation) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.TaskID)
	}
	return out
}

func sameStrings(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	f := newQueueFixture(false)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		if _, err := f.queue.SaveTask(ctx, &domain.Task{ID: id, Title: id}); err != nil {
			t.Fatalf("SaveTask(%s) error = %v", id, err)
		}
	}
	if got := pendingIDs(f.queue.Pending()); !sameStrings(got, []string{"A", "B", "C"}) {
		t.Fatalf("pending before drain = %v", got)
	}
	if len(f.syncer.Calls) != 0 {
		t.Fatalf("syncer called while offline: %v", f.syncer.CallIDs())
	}

	f.syncer.SetFail("C", true)
	f.queue.HandleStateChange(ctx, domain.StateOffline, domain.StateOnline)

	if got := pendingIDs(f.queue.Pending()); !sameStrings(got, []string{"C"}) {
		t.Errorf("pending after drain = %v, want [C]", got)
	}
	if got := f.syncer.CallIDs(); !sameStrings(got, []string{"A", "B", "C"}) {
		t.Errorf("replay order = %v", got)
	}
	if f.recorder.Has(msgAllSynced) {
		t.Error("sync notification sent although queue is not empty")
	}

	f.syncer.SetFail("C", false)
	if err := f.queue.Drain(ctx); err != nil {
		t.Fatalf("second Drain() error = %v", err)
	}
	if n := len(f.queue.Pending()); n != 0 {
		t.Errorf("pending after second drain = %d", n)
	}
	if !f.recorder.Has(msgAllSynced) {
		t.Error("missing all-synced notification")
	}
}

func TestDrainReturnsQueueProcessingError(t *testing.T) {
	f := newQueueFixture(false)
	ctx := context.Background()
	f.queue.SaveTask(ctx, &domain.Task{ID: "A"})
	f.syncer.SetFail("A", true)
	f.queue.HandleStateChange(ctx, domain.StateOffline, domain.StateOnline)

	err := f.queue.Drain(ctx)
	if !errors.Is(err, ErrQueueProcessing) {
		t.Fatalf("Drain() error = %v, want ErrQueueProcessing", err)
	}
}

func TestOnlineWriteSyncsImmediately(t *testing.T) {
	f := newQueueFixture(true)
	ctx := context.Background()

	saved, err := f.queue.SaveTask(ctx, &domain.Task{ID: "t1", Title: "write"})
	if err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("stored task has no updatedAt")
	}
	if err := f.queue.DeleteTask(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if n := len(f.queue.Pending()); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
	want := []testutil.SyncCall{
		{Kind: domain.OperationSave, ID: "t1"},
		{Kind: domain.OperationDelete, ID: "t1"},
	}
	if len(f.syncer.Calls) != len(want) {
		t.Fatalf("calls = %v", f.syncer.Calls)
	}
	for i := range want {
		if f.syncer.Calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, f.syncer.Calls[i], want[i])
		}
	}
}

func TestFailedSyncKeepsLaterWritesBehind(t *testing.T) {
	f := newQueueFixture(true)
	ctx := context.Background()
	f.syncer.SetFail("A", true)

	f.queue.SaveTask(ctx, &domain.Task{ID: "A"})
	f.queue.SaveTask(ctx, &domain.Task{ID: "B"})

	if got := pendingIDs(f.queue.Pending()); !sameStrings(got, []string{"A", "B"}) {
		t.Errorf("pending = %v, want [A B]", got)
	}
	if _, ok := f.store.Get("B"); !ok {
		t.Error("B not written locally")
	}
}

func TestStoreFailureIsQueuedAndReplayed(t *testing.T) {
	f := newQueueFixture(false)
	ctx := context.Background()
	f.store.SetFail(true)

	_, err := f.queue.SaveTask(ctx, &domain.Task{ID: "x", Title: "late"})
	if !errors.Is(err, domain.ErrTransaction) {
		t.Fatalf("SaveTask() error = %v, want ErrTransaction", err)
	}
	if !f.recorder.Has(msgSaveFailed) {
		t.Error("missing save failure notification")
	}
	pending := f.queue.Pending()
	if len(pending) != 1 || pending[0].LocalApplied {
		t.Fatalf("pending = %+v", pending)
	}

	f.store.SetFail(false)
	f.queue.HandleStateChange(ctx, domain.StateOffline, domain.StateOnline)

	if _, ok := f.store.Get("x"); !ok {
		t.Error("local write not re-applied on drain")
	}
	if n := len(f.queue.Pending()); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}

func TestDeleteWhileOfflineIsQueued(t *testing.T) {
	f := newQueueFixture(false)
	ctx := context.Background()

	if err := f.queue.DeleteTask(ctx, "missing"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	pending := f.queue.Pending()
	if len(pending) != 1 || pending[0].Kind != domain.OperationDelete || pending[0].Task != nil {
		t.Errorf("pending = %+v", pending)
	}
}

func TestSaveTaskRequiresID(t *testing.T) {
	f := newQueueFixture(true)
	if _, err := f.queue.SaveTask(context.Background(), &domain.Task{}); !errors.Is(err, ErrTaskInvalidInput) {
		t.Errorf("error = %v, want ErrTaskInvalidInput", err)
	}
}

type blockingSyncer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSyncer) SyncSave(ctx context.Context, task *domain.Task) error {
	b.started <- struct{}{}
	<-b.release
	return nil
}

func (b *blockingSyncer) SyncDelete(ctx context.Context, id string) error { return nil }

func TestConcurrentDrainReturnsImmediately(t *testing.T) {
	syncer := &blockingSyncer{started: make(chan struct{}, 1), release: make(chan struct{})}
	q := NewOfflineQueue(OfflineQueueConfig{
		Store:    testutil.NewMemoryStore(),
		Syncer:   syncer,
		Notifier: &testutil.Recorder{},
	})
	ctx := context.Background()
	q.SaveTask(ctx, &domain.Task{ID: "slow"})

	q.mu.Lock()
	q.online = true
	q.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- q.Drain(ctx) }()
	<-syncer.started

	if err := q.Drain(ctx); err != nil {
		t.Errorf("concurrent Drain() error = %v", err)
	}
	if n := len(q.Pending()); n != 1 {
		t.Errorf("pending during scan = %d, want 1", n)
	}

	close(syncer.release)
	if err := <-done; err != nil {
		t.Fatalf("first Drain() error = %v", err)
	}
	if n := len(q.Pending()); n != 0 {
		t.Errorf("pending after scan = %d", n)
	}
}

func TestDrainNeverRestoresSupersededLocalWrite(t *testing.T) {
	f := newQueueFixture(false)
	ctx := context.Background()

	f.store.SetFail(true)
	if _, err := f.queue.SaveTask(ctx, &domain.Task{ID: "A", Title: "v1"}); err == nil {
		t.Fatal("SaveTask(v1) succeeded on a failing store")
	}
	f.store.SetFail(false)
	if _, err := f.queue.SaveTask(ctx, &domain.Task{ID: "A", Title: "v2"}); err != nil {
		t.Fatalf("SaveTask(v2) error = %v", err)
	}

	f.queue.SaveTask(ctx, &domain.Task{ID: "Z", Title: "first"})
	f.queue.DeleteTask(ctx, "Z")
	f.store.SetFail(true)
	f.queue.SaveTask(ctx, &domain.Task{ID: "Z", Title: "lost"})
	f.store.SetFail(false)
	if err := f.queue.DeleteTask(ctx, "Z"); err != nil {
		t.Fatalf("DeleteTask(Z) error = %v", err)
	}

	f.queue.HandleStateChange(ctx, domain.StateOffline, domain.StateOnline)

	if n := len(f.queue.Pending()); n != 0 {
		t.Fatalf("pending after drain = %d", n)
	}
	if got, _ := f.store.Get("A"); got.Title != "v2" {
		t.Errorf("local A title = %q, want v2", got.Title)
	}
	if _, ok := f.store.Get("Z"); ok {
		t.Error("Z present after its last delete")
	}
	want := []string{"A", "A", "Z", "Z", "Z", "Z"}
	if got := f.syncer.CallIDs(); !sameStrings(got, want) {
		t.Errorf("remote calls = %v, want %v", got, want)
	}
}

func TestDrainPicksUpWritesMadeDuringScan(t *testing.T) {
	syncer := &blockingSyncer{started: make(chan struct{}, 2), release: make(chan struct{})}
	rec := &testutil.Recorder{}
	q := NewOfflineQueue(OfflineQueueConfig{
		Store:    testutil.NewMemoryStore(),
		Syncer:   syncer,
		Notifier: rec,
	})
	ctx := context.Background()
	q.SaveTask(ctx, &domain.Task{ID: "A"})

	done := make(chan struct{})
	go func() {
		q.HandleStateChange(ctx, domain.StateOffline, domain.StateOnline)
		close(done)
	}()
	<-syncer.started

	if _, err := q.SaveTask(ctx, &domain.Task{ID: "B"}); err != nil {
		t.Fatalf("SaveTask(B) error = %v", err)
	}
	close(syncer.release)
	<-done

	if got := pendingIDs(q.Pending()); len(got) != 0 {
		t.Errorf("pending after reconnect = %v, want none", got)
	}
	if !rec.Has(msgAllSynced) {
		t.Error("missing all-synced notification")
	}
}

func TestConcurrentOnlineWritesSyncInWriteOrder(t *testing.T) {
	f := newQueueFixture(true)
	ctx := context.Background()

	const writers = 20
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		saved []domain.Task
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := f.queue.SaveTask(ctx, &domain.Task{ID: fmt.Sprintf("t%02d", i)})
			if err != nil {
				t.Errorf("SaveTask() error = %v", err)
				return
			}
			mu.Lock()
			saved = append(saved, *task)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for len(f.queue.Pending()) > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := len(f.queue.Pending()); n != 0 {
		t.Fatalf("pending = %d, want 0", n)
	}

	sort.Slice(saved, func(i, j int) bool { return saved[i].UpdatedAt.Before(saved[j].UpdatedAt) })
	want := make([]string, 0, len(saved))
	for _, task := range saved {
		want = append(want, task.ID)
	}
	if got := f.syncer.CallIDs(); !sameStrings(got, want) {
		t.Errorf("remote order = %v, want local write order %v", got, want)
	}
	if f.recorder.Has(msgAllSynced) {
		t.Error("online writes announced as a synced backlog")
	}
}

func TestLocalWritesKeepCheckedMapInStep(t *testing.T) {
	kv := testutil.NewMemoryKV()
	prefs := NewPreferenceService(PreferenceServiceConfig{KV: kv})
	q := NewOfflineQueue(OfflineQueueConfig{
		Store:    testutil.NewMemoryStore(),
		Notifier: &testutil.Recorder{},
		Checked:  prefs,
		Online:   true,
	})
	ctx := context.Background()

	checked := func() map[string]bool {
		t.Helper()
		m, err := prefs.Checked(ctx)
		if err != nil {
			t.Fatalf("Checked() error = %v", err)
		}
		return m
	}

	q.SaveTask(ctx, &domain.Task{ID: "t1", Status: domain.TaskStatusDone, Completed: true})
	q.SaveTask(ctx, &domain.Task{ID: "t2", Status: domain.TaskStatusTodo})
	if m := checked(); !m["t1"] || len(m) != 1 {
		t.Errorf("checked after saves = %v", m)
	}

	q.SaveTask(ctx, &domain.Task{ID: "t1", Status: domain.TaskStatusTodo})
	if m := checked(); len(m) != 0 {
		t.Errorf("checked after reopening t1 = %v", m)
	}

	q.SaveTask(ctx, &domain.Task{ID: "t2", Status: domain.TaskStatusDone, Completed: true})
	if err := q.DeleteTask(ctx, "t2"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if m := checked(); len(m) != 0 {
		t.Errorf("checked after delete = %v", m)
	}
}
