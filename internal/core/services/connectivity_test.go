package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/testutil"
)

var errHealth = errors.New("health endpoint down")

func newMonitor(probe *testutil.ManualProbe, rec *testutil.Recorder, retries int) *ConnectivityMonitor {
	return NewConnectivityMonitor(ConnectivityMonitorConfig{
		Network:    probe,
		Health:     probe,
		Notifier:   rec,
		MaxRetries: retries,
	})
}

func TestProbeStates(t *testing.T) {
	tests := []struct {
		name       string
		network    bool
		healthErr  error
		want       domain.ConnectivityState
		wantChecks int
	}{
		{"network down", false, nil, domain.StateOffline, 0},
		{"healthy", true, nil, domain.StateOnline, 1},
		{"server down", true, errHealth, domain.StateServerUnreachable, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := &testutil.ManualProbe{Network: tt.network, HealthErr: tt.healthErr}
			m := newMonitor(probe, &testutil.Recorder{}, 3)

			if got := m.Probe(context.Background()); got != tt.want {
				t.Errorf("Probe() = %s, want %s", got, tt.want)
			}
			if got := probe.CheckCount(); got != tt.wantChecks {
				t.Errorf("health checks = %d, want %d", got, tt.wantChecks)
			}
			if m.Status().State != tt.want {
				t.Errorf("Status().State = %s", m.Status().State)
			}
		})
	}
}

func TestProbeWithoutHealthChecker(t *testing.T) {
	probe := &testutil.ManualProbe{Network: true}
	m := NewConnectivityMonitor(ConnectivityMonitorConfig{Network: probe, Notifier: &testutil.Recorder{}})
	if got := m.Probe(context.Background()); got != domain.StateOnline {
		t.Errorf("Probe() = %s, want online", got)
	}
}

func TestTransitionsNotifyAndCallListeners(t *testing.T) {
	probe := &testutil.ManualProbe{Network: true}
	rec := &testutil.Recorder{}
	m := newMonitor(probe, rec, 1)

	type change struct{ from, to domain.ConnectivityState }
	var (
		mu      sync.Mutex
		changes []change
	)
	m.OnChange(func(ctx context.Context, from, to domain.ConnectivityState) {
		mu.Lock()
		changes = append(changes, change{from, to})
		mu.Unlock()
	})

	ctx := context.Background()
	m.Probe(ctx)
	if len(rec.All()) != 0 {
		t.Errorf("initial online result notified: %v", rec.All())
	}

	m.HandleNetworkEvent(ctx, false)
	probe.Set(true, errHealth)
	m.HandleNetworkEvent(ctx, true)
	probe.Set(true, nil)
	m.Probe(ctx)
	m.Probe(ctx)

	want := []change{
		{domain.StateUnknown, domain.StateOnline},
		{domain.StateOnline, domain.StateOffline},
		{domain.StateOffline, domain.StateServerUnreachable},
		{domain.StateServerUnreachable, domain.StateOnline},
	}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v", changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, changes[i], want[i])
		}
	}

	got := rec.All()
	wantMsgs := []domain.Notification{
		{Message: msgOffline, Severity: domain.SeverityWarning},
		{Message: msgServerUnreachable, Severity: domain.SeverityWarning},
		{Message: msgBackOnline, Severity: domain.SeveritySuccess},
	}
	if len(got) != len(wantMsgs) {
		t.Fatalf("notifications = %v", got)
	}
	for i := range wantMsgs {
		if got[i].Message != wantMsgs[i].Message || got[i].Severity != wantMsgs[i].Severity {
			t.Errorf("notification %d = %+v", i, got[i])
		}
	}
}

func TestReconnectDrainsQueue(t *testing.T) {
	probe := &testutil.ManualProbe{Network: false}
	rec := &testutil.Recorder{}
	syncer := &testutil.FakeSyncer{}
	queue := NewOfflineQueue(OfflineQueueConfig{
		Store:    testutil.NewMemoryStore(),
		Syncer:   syncer,
		Notifier: rec,
	})
	m := NewConnectivityMonitor(ConnectivityMonitorConfig{
		Network:  probe,
		Health:   probe,
		Notifier: rec,
		Pending:  func() int { return len(queue.Pending()) },
	})
	m.OnChange(queue.HandleStateChange)

	ctx := context.Background()
	m.Probe(ctx)
	queue.SaveTask(ctx, &domain.Task{ID: "offline-1"})
	queue.SaveTask(ctx, &domain.Task{ID: "offline-2"})
	if got := m.Status().Pending; got != 2 {
		t.Fatalf("Status().Pending = %d, want 2", got)
	}

	probe.Set(true, nil)
	m.HandleNetworkEvent(ctx, true)

	if got := m.Status().Pending; got != 0 {
		t.Errorf("Status().Pending = %d after reconnect", got)
	}
	if got := syncer.CallIDs(); !sameStrings(got, []string{"offline-1", "offline-2"}) {
		t.Errorf("replayed = %v", got)
	}
	if !rec.Has(msgAllSynced) {
		t.Error("missing all-synced notification")
	}
}

func TestStartStop(t *testing.T) {
	probe := &testutil.ManualProbe{Network: true}
	m := NewConnectivityMonitor(ConnectivityMonitorConfig{
		Network:       probe,
		Health:        probe,
		Notifier:      &testutil.Recorder{},
		ProbeInterval: 5 * time.Millisecond,
	})

	m.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for probe.CheckCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	m.Stop()

	if probe.CheckCount() < 3 {
		t.Fatalf("probe loop ran %d times", probe.CheckCount())
	}
	after := probe.CheckCount()
	time.Sleep(20 * time.Millisecond)
	if probe.CheckCount() != after {
		t.Error("probe loop still running after Stop")
	}
	m.Stop()
}
