package ports

import (
	"context"

	"github.com/taskextreme/backend/internal/domain"
)

// Notifier delivers user-visible messages.
type Notifier interface {
	Notify(message string, severity domain.Severity)
}

// HealthChecker reports whether the sync server answers its health endpoint.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// NetworkProbe reports whether the host has a usable network link.
type NetworkProbe interface {
	Reachable(ctx context.Context) bool
}

// RemoteSyncer pushes one replayed operation to the remote side.
type RemoteSyncer interface {
	SyncSave(ctx context.Context, task *domain.Task) error
	SyncDelete(ctx context.Context, id string) error
}

type TaskService interface {
	SaveTask(ctx context.Context, task *domain.Task) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
	GetAllTasks(ctx context.Context, query domain.TaskQuery) ([]domain.Task, error)
	ClearTasks(ctx context.Context) error
	Pending() []domain.PendingOperation
	Drain(ctx context.Context) error
}

type ConnectivityService interface {
	Status() domain.ConnectivityStatus
	HandleNetworkEvent(ctx context.Context, online bool)
	Probe(ctx context.Context) domain.ConnectivityState
}

type TemplateService interface {
	List(ctx context.Context) []domain.Template
	Grouped(ctx context.Context) []domain.TemplateGroup
	Get(ctx context.Context, id string) (*domain.Template, error)
	Create(ctx context.Context, input TemplateInput) (*domain.Template, error)
	Update(ctx context.Context, id string, input TemplateInput) (*domain.Template, error)
	Delete(ctx context.Context, id string) error
	Duplicate(ctx context.Context, id string) (*domain.Template, error)
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, data []byte) error
	Apply(ctx context.Context, id string, date string) ([]domain.Task, error)
}

type TemplateInput struct {
	Name   string
	Icon   string
	Color  string
	Group  string
	Repeat string
	Tasks  []domain.TemplateTask
}

type PreferenceService interface {
	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, theme string) error
	View(ctx context.Context) (domain.ViewMode, error)
	SetView(ctx context.Context, view domain.ViewMode) error
	Checked(ctx context.Context) (map[string]bool, error)
	SetChecked(ctx context.Context, checked map[string]bool) error
}

// CheckedTracker keeps the checked map in step with task writes.
type CheckedTracker interface {
	TrackChecked(ctx context.Context, task *domain.Task) error
	ForgetChecked(ctx context.Context, id string) error
}
