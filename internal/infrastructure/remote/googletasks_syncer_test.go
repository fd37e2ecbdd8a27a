package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/testutil"
	"google.golang.org/api/option"
)

// fakeTasksAPI serves the subset of the Google Tasks REST API the syncer
// calls, keeping tasks in memory.
type fakeTasksAPI struct {
	mu    sync.Mutex
	next  int
	tasks map[string]map[string]interface{}
	calls []string
}

func (f *fakeTasksAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/tasks/v1/lists/work/tasks"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "unexpected path "+r.URL.Path, http.StatusBadRequest)
		return
	}
	remoteID := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")
	f.calls = append(f.calls, r.Method+" "+remoteID)

	writeNotFound := func() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"Task not found"}}`)
	}

	switch r.Method {
	case http.MethodPost:
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		f.next++
		id := fmt.Sprintf("g%d", f.next)
		body["id"] = id
		f.tasks[id] = body
		json.NewEncoder(w).Encode(body)
	case http.MethodPatch:
		existing, ok := f.tasks[remoteID]
		if !ok {
			writeNotFound()
			return
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		for k, v := range body {
			existing[k] = v
		}
		json.NewEncoder(w).Encode(existing)
	case http.MethodDelete:
		if _, ok := f.tasks[remoteID]; !ok {
			writeNotFound()
			return
		}
		delete(f.tasks, remoteID)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func newGoogleFixture(t *testing.T) (*GoogleTasksSyncer, *fakeTasksAPI, *testutil.MemoryKV) {
	t.Helper()
	api := &fakeTasksAPI{tasks: make(map[string]map[string]interface{})}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	kv := testutil.NewMemoryKV()
	syncer, err := NewGoogleTasksSyncerWithClient(context.Background(), srv.Client(), "work", kv, nil,
		option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewGoogleTasksSyncerWithClient() error = %v", err)
	}
	return syncer, api, kv
}

func TestGoogleTasksSyncerLifecycle(t *testing.T) {
	syncer, api, kv := newGoogleFixture(t)
	ctx := context.Background()
	task := &domain.Task{ID: "local-1", Title: "Draft", DueDate: "2024-06-01"}

	if err := syncer.SyncSave(ctx, task); err != nil {
		t.Fatalf("first SyncSave() error = %v", err)
	}
	raw, _, _ := kv.Get(ctx, KeyGoogleTaskIDs)
	if raw != `{"local-1":"g1"}` {
		t.Errorf("id map = %s", raw)
	}
	if due := api.tasks["g1"]["due"]; due != "2024-06-01T00:00:00Z" {
		t.Errorf("due = %v", due)
	}

	task.Title = "Final"
	task.Completed = true
	if err := syncer.SyncSave(ctx, task); err != nil {
		t.Fatalf("second SyncSave() error = %v", err)
	}
	if got := api.tasks["g1"]; got["title"] != "Final" || got["status"] != "completed" {
		t.Errorf("patched task = %v", got)
	}

	if err := syncer.SyncDelete(ctx, "local-1"); err != nil {
		t.Fatalf("SyncDelete() error = %v", err)
	}
	if len(api.tasks) != 0 {
		t.Errorf("remote tasks left: %v", api.tasks)
	}
	if err := syncer.SyncDelete(ctx, "never-synced"); err != nil {
		t.Errorf("SyncDelete(unmapped) error = %v", err)
	}

	want := []string{"POST ", "PATCH g1", "DELETE g1"}
	if len(api.calls) != len(want) {
		t.Fatalf("calls = %v", api.calls)
	}
	for i := range want {
		if api.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, api.calls[i], want[i])
		}
	}
}

func TestGoogleTasksSyncerReinsertsMissingMirror(t *testing.T) {
	syncer, api, kv := newGoogleFixture(t)
	ctx := context.Background()
	kv.Set(ctx, KeyGoogleTaskIDs, `{"local-1":"gone"}`)

	if err := syncer.SyncSave(ctx, &domain.Task{ID: "local-1", Title: "again"}); err != nil {
		t.Fatalf("SyncSave() error = %v", err)
	}
	raw, _, _ := kv.Get(ctx, KeyGoogleTaskIDs)
	if raw != `{"local-1":"g1"}` {
		t.Errorf("id map = %s", raw)
	}
	if len(api.tasks) != 1 {
		t.Errorf("remote tasks = %v", api.tasks)
	}
}

func TestGoogleTasksSyncerKeepsInsertWhenIDMapFails(t *testing.T) {
	syncer, api, kv := newGoogleFixture(t)
	ctx := context.Background()
	kv.SetFail(true)

	if err := syncer.SyncSave(ctx, &domain.Task{ID: "local-1", Title: "once"}); err != nil {
		t.Fatalf("SyncSave() error = %v, want nil after a completed insert", err)
	}
	if len(api.tasks) != 1 {
		t.Errorf("remote tasks = %v, want exactly one", api.tasks)
	}
	if _, ok, _ := kv.Get(ctx, KeyGoogleTaskIDs); ok {
		t.Error("id map stored despite failing kv")
	}
}
