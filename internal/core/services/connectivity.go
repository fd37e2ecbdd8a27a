package services

import (
	"context"
	"sync"
	"time"

	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/infrastructure/notify"
)

const (
	msgBackOnline        = "You are back online"
	msgOffline           = "You are currently offline. Changes will be synced when you are back online."
	msgServerUnreachable = "Server is unreachable. Changes will be synced when it is back."
)

// StateListener is called after every state change.
type StateListener func(ctx context.Context, from, to domain.ConnectivityState)

type ConnectivityMonitorConfig struct {
	Network ports.NetworkProbe
	// Health may be nil, in which case the network state alone decides.
	Health        ports.HealthChecker
	Notifier      ports.Notifier
	Logger        *logger.Logger
	ProbeInterval time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	Clock         func() time.Time
	// Pending reports the queue length for status snapshots.
	Pending func() int
}

type ConnectivityMonitor struct {
	network  ports.NetworkProbe
	health   ports.HealthChecker
	notifier ports.Notifier
	logger   *logger.Logger
	interval time.Duration
	retries  int
	delay    time.Duration
	now      func() time.Time
	pending  func() int

	probeMu sync.Mutex

	mu        sync.RWMutex
	state     domain.ConnectivityState
	lastCh    time.Time
	lastProbe time.Time
	failures  int
	listeners []StateListener

	cancel context.CancelFunc
	done   chan struct{}
}

func NewConnectivityMonitor(cfg ConnectivityMonitorConfig) *ConnectivityMonitor {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	interval := cfg.ProbeInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ConnectivityMonitor{
		network:  cfg.Network,
		health:   cfg.Health,
		notifier: notify.OrDefault(cfg.Notifier, log),
		logger:   log,
		interval: interval,
		retries:  retries,
		delay:    cfg.RetryDelay,
		now:      clock,
		pending:  cfg.Pending,
		state:    domain.StateUnknown,
	}
}

var _ ports.ConnectivityService = (*ConnectivityMonitor)(nil)

// OnChange registers a listener for state transitions.
func (m *ConnectivityMonitor) OnChange(l StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *ConnectivityMonitor) Status() domain.ConnectivityStatus {
	m.mu.RLock()
	status := domain.ConnectivityStatus{
		State:               m.state,
		LastChange:          m.lastCh,
		LastProbe:           m.lastProbe,
		ConsecutiveFailures: m.failures,
	}
	m.mu.RUnlock()
	if m.pending != nil {
		status.Pending = m.pending()
	}
	return status
}

// Start runs an initial probe and then one per interval until Stop is
// called or ctx ends.
func (m *ConnectivityMonitor) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.Probe(loopCtx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.logger.Infow("connectivity_monitor_started", "interval", m.interval.String())

		for {
			select {
			case <-ticker.C:
				m.Probe(loopCtx)
			case <-loopCtx.Done():
				m.logger.Infow("connectivity_monitor_stopped")
				return
			}
		}
	}()
}

// Stop cancels the probe loop and waits for it to exit.
func (m *ConnectivityMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// HandleNetworkEvent takes an external connectivity report. Going offline
// is trusted as is; coming online is confirmed with a probe.
func (m *ConnectivityMonitor) HandleNetworkEvent(ctx context.Context, online bool) {
	m.logger.Infow("connectivity_network_event", "online", online)
	if !online {
		m.probeMu.Lock()
		defer m.probeMu.Unlock()
		m.transition(ctx, domain.StateOffline)
		return
	}
	m.Probe(ctx)
}

// Probe checks the network and the health endpoint and moves to the
// resulting state.
func (m *ConnectivityMonitor) Probe(ctx context.Context) domain.ConnectivityState {
	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	next := m.evaluate(ctx)
	if ctx.Err() != nil {
		return m.Status().State
	}
	m.transition(ctx, next)
	return next
}

func (m *ConnectivityMonitor) evaluate(ctx context.Context) domain.ConnectivityState {
	if m.network != nil && !m.network.Reachable(ctx) {
		return domain.StateOffline
	}
	if m.health == nil {
		return domain.StateOnline
	}

	var lastErr error
	for attempt := 1; attempt <= m.retries; attempt++ {
		if lastErr = m.health.Check(ctx); lastErr == nil {
			return domain.StateOnline
		}
		m.logger.Warnw("connectivity_health_check_failed",
			"attempt", attempt,
			"max_retries", m.retries,
			"error", lastErr,
		)
		if attempt == m.retries || m.delay <= 0 {
			continue
		}
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.StateServerUnreachable
		}
	}
	return domain.StateServerUnreachable
}

func (m *ConnectivityMonitor) transition(ctx context.Context, next domain.ConnectivityState) {
	now := m.now()

	m.mu.Lock()
	prev := m.state
	m.lastProbe = now
	if next == domain.StateOnline {
		m.failures = 0
	} else {
		m.failures++
	}
	if prev == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	m.lastCh = now
	listeners := append([]StateListener(nil), m.listeners...)
	m.mu.Unlock()

	m.logger.Infow("connectivity_state_changed", "from", prev, "to", next)
	m.announce(prev, next)
	for _, l := range listeners {
		l(ctx, prev, next)
	}
}

// announce notifies the user. The first Online result after startup is
// not news and stays quiet.
func (m *ConnectivityMonitor) announce(prev, next domain.ConnectivityState) {
	switch next {
	case domain.StateOnline:
		if prev != domain.StateUnknown {
			m.notifier.Notify(msgBackOnline, domain.SeveritySuccess)
		}
	case domain.StateOffline:
		m.notifier.Notify(msgOffline, domain.SeverityWarning)
	case domain.StateServerUnreachable:
		m.notifier.Notify(msgServerUnreachable, domain.SeverityWarning)
	}
}
