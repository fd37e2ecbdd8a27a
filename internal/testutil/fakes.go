// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taskextreme/backend/internal/domain"
)

// Recorder is a Notifier that keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (r *Recorder) Notify(message string, severity domain.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, domain.Notification{Message: message, Severity: severity})
}

func (r *Recorder) All() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.items...)
}

// Has reports whether a notification with the given message was recorded.
func (r *Recorder) Has(message string) bool {
	for _, n := range r.All() {
		if n.Message == message {
			return true
		}
	}
	return false
}

var ErrSyncFailed = errors.New("fake sync failure")

// SyncCall is one operation seen by FakeSyncer.
type SyncCall struct {
	Kind domain.OperationKind
	ID   string
}

// FakeSyncer records replayed operations and fails for ids listed in FailIDs.
type FakeSyncer struct {
	mu      sync.Mutex
	Calls   []SyncCall
	FailIDs map[string]bool
}

func (f *FakeSyncer) SyncSave(ctx context.Context, task *domain.Task) error {
	return f.record(domain.OperationSave, task.ID)
}

func (f *FakeSyncer) SyncDelete(ctx context.Context, id string) error {
	return f.record(domain.OperationDelete, id)
}

func (f *FakeSyncer) record(kind domain.OperationKind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, SyncCall{Kind: kind, ID: id})
	if f.FailIDs[id] {
		return ErrSyncFailed
	}
	return nil
}

func (f *FakeSyncer) SetFail(id string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailIDs == nil {
		f.FailIDs = make(map[string]bool)
	}
	f.FailIDs[id] = fail
}

func (f *FakeSyncer) CallIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		ids = append(ids, c.ID)
	}
	return ids
}

// StepClock is a clock that advances by one millisecond per reading.
type StepClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewStepClock(start time.Time) *StepClock {
	return &StepClock{t: start}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

// ManualProbe is a NetworkProbe and HealthChecker whose answers tests flip.
type ManualProbe struct {
	mu        sync.Mutex
	Network   bool
	HealthErr error
	Checks    int
}

func (p *ManualProbe) Reachable(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Network
}

func (p *ManualProbe) Check(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Checks++
	return p.HealthErr
}

func (p *ManualProbe) Set(network bool, healthErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Network = network
	p.HealthErr = healthErr
}

func (p *ManualProbe) CheckCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Checks
}
