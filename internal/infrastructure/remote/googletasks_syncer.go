package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/taskextreme/backend/internal/config"
	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"
)

const (
	// KeyGoogleTaskIDs maps local task ids to Google Tasks ids in the kv store.
	KeyGoogleTaskIDs = "taskextreme_gtasks_ids"

	googleTasksScope = "https://www.googleapis.com/auth/tasks"
	googleAPITimeout = 10 * time.Second
)

// GoogleTasksSyncer mirrors tasks into one Google Tasks list.
type GoogleTasksSyncer struct {
	svc    *tasks.Service
	listID string
	kv     ports.KeyValueRepository
	logger *logger.Logger

	mu sync.Mutex
}

// NewGoogleTasksSyncer loads the OAuth client and token files and builds an
// auto-refreshing client.
func NewGoogleTasksSyncer(ctx context.Context, cfg config.GoogleTasksConfig, kv ports.KeyValueRepository, log *logger.Logger) (*GoogleTasksSyncer, error) {
	clientJSON, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrSyncCredentials, cfg.CredentialsPath, err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, googleTasksScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyncCredentials, err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrSyncCredentials, cfg.TokenPath, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("%w: invalid token: %v", ErrSyncCredentials, err)
	}

	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))
	return NewGoogleTasksSyncerWithClient(ctx, httpClient, cfg.ListID, kv, log)
}

// NewGoogleTasksSyncerWithClient builds a syncer on an existing HTTP client.
// Extra options (an endpoint override in tests) are passed to the API client.
func NewGoogleTasksSyncerWithClient(ctx context.Context, httpClient *http.Client, listID string, kv ports.KeyValueRepository, log *logger.Logger, opts ...option.ClientOption) (*GoogleTasksSyncer, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if listID == "" {
		listID = "@default"
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &GoogleTasksSyncer{svc: svc, listID: listID, kv: kv, logger: log}, nil
}

var _ ports.RemoteSyncer = (*GoogleTasksSyncer)(nil)

// SyncSave patches the mirrored task, or inserts it when it has no mirror
// yet or the mirror was removed remotely.
func (g *GoogleTasksSyncer) SyncSave(ctx context.Context, task *domain.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, googleAPITimeout)
	defer cancel()

	ids, err := g.loadIDs(ctx)
	if err != nil {
		return err
	}
	body := toGoogleTask(task)

	if remoteID, ok := ids[task.ID]; ok {
		_, err := g.svc.Tasks.Patch(g.listID, remoteID, body).Context(ctx).Do()
		if err == nil {
			g.logger.Infow("sync_gtasks_patched", "id", task.ID, "remote_id", remoteID)
			return nil
		}
		if !isNotFound(err) {
			return fmt.Errorf("%w: patch %s: %v", ErrSyncRequest, task.ID, err)
		}
		delete(ids, task.ID)
	}

	created, err := g.svc.Tasks.Insert(g.listID, body).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: insert %s: %v", ErrSyncRequest, task.ID, err)
	}
	ids[task.ID] = created.Id
	g.logger.Infow("sync_gtasks_inserted", "id", task.ID, "remote_id", created.Id)

	// A completed insert is never reported as failed, or a replay inserts
	// it twice.
	if err := g.storeIDs(ctx, ids); err != nil {
		g.logger.Errorw("sync_gtasks_id_map_store_failed", "id", task.ID, "remote_id", created.Id, "error", err)
	}
	return nil
}

// SyncDelete removes the mirror. Tasks never mirrored, or already gone
// remotely, succeed.
func (g *GoogleTasksSyncer) SyncDelete(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, googleAPITimeout)
	defer cancel()

	ids, err := g.loadIDs(ctx)
	if err != nil {
		return err
	}
	remoteID, ok := ids[id]
	if !ok {
		return nil
	}
	if err := g.svc.Tasks.Delete(g.listID, remoteID).Context(ctx).Do(); err != nil && !isNotFound(err) {
		return fmt.Errorf("%w: delete %s: %v", ErrSyncRequest, id, err)
	}
	delete(ids, id)
	g.logger.Infow("sync_gtasks_deleted", "id", id, "remote_id", remoteID)
	return g.storeIDs(ctx, ids)
}

func (g *GoogleTasksSyncer) loadIDs(ctx context.Context) (map[string]string, error) {
	ids := map[string]string{}
	raw, ok, err := g.kv.Get(ctx, KeyGoogleTaskIDs)
	if err != nil || !ok {
		return ids, err
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		g.logger.Warnw("sync_gtasks_id_map_corrupt", "error", err)
		return map[string]string{}, nil
	}
	return ids, nil
}

func (g *GoogleTasksSyncer) storeIDs(ctx context.Context, ids map[string]string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return g.kv.Set(ctx, KeyGoogleTaskIDs, string(data))
}

func toGoogleTask(task *domain.Task) *tasks.Task {
	out := &tasks.Task{
		Title:  task.Title,
		Notes:  task.Details,
		Status: "needsAction",
	}
	if task.Completed || task.Status == domain.TaskStatusDone {
		out.Status = "completed"
	}
	due := task.DueDate
	if due == "" {
		due = task.Date
	}
	if d, err := time.Parse("2006-01-02", due); err == nil {
		out.Due = d.UTC().Format(time.RFC3339)
	}
	return out
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
