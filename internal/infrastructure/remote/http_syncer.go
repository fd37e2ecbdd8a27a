package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
)

type HTTPSyncerConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *logger.Logger
}

// HTTPSyncer pushes replayed operations to a REST endpoint:
// POST {base}/api/tasks for saves and DELETE {base}/api/tasks/{id}.
type HTTPSyncer struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewHTTPSyncer(cfg HTTPSyncerConfig) *HTTPSyncer {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &HTTPSyncer{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

func (s *HTTPSyncer) SyncSave(ctx context.Context, task *domain.Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	return s.do(ctx, http.MethodPost, s.baseURL+"/api/tasks", body, task.ID)
}

func (s *HTTPSyncer) SyncDelete(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, s.baseURL+"/api/tasks/"+url.PathEscape(id), nil, id)
}

func (s *HTTPSyncer) do(ctx context.Context, method, target string, body []byte, id string) error {
	start := time.Now()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyncRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.token))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warnw("sync_http_network_error", "method", method, "id", id, "error", err)
		return fmt.Errorf("%w: %v", ErrSyncRequest, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	s.logger.Infow("sync_http_response",
		"method", method,
		"id", id,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrSyncRejected, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}
