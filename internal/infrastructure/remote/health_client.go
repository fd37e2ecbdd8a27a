package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/taskextreme/backend/internal/infrastructure/logger"
)

type HealthClientConfig struct {
	URL     string
	Timeout time.Duration
	Logger  *logger.Logger
}

// HealthClient sends a HEAD request to a fixed URL. Any 2xx answer counts as
// reachable; the body is never read.
type HealthClient struct {
	url        string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewHealthClient(cfg HealthClientConfig) *HealthClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &HealthClient{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

func (c *HealthClient) Check(ctx context.Context) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHealthCheck, err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debugw("health_check_network_error", "url", c.url, "error", err)
		return fmt.Errorf("%w: %v", ErrHealthCheck, err)
	}
	resp.Body.Close()

	c.logger.Debugw("health_check_response",
		"url", c.url,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrHealthCheck, resp.StatusCode)
	}
	return nil
}
