// Package notify provides the default Notifier implementations.
package notify

import (
	"strings"
	"sync"

	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
)

// LogNotifier writes "SEVERITY: message" lines when no UI is attached.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(message string, severity domain.Severity) {
	line := strings.ToUpper(string(severity)) + ": " + message
	switch severity {
	case domain.SeverityError:
		n.log.Error(line)
	case domain.SeverityWarning:
		n.log.Warn(line)
	default:
		n.log.Info(line)
	}
}

// Multi fans a notification out to every registered notifier.
type Multi struct {
	mu        sync.RWMutex
	notifiers []ports.Notifier
}

func NewMulti(notifiers ...ports.Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		m.Add(n)
	}
	return m
}

func (m *Multi) Add(n ports.Notifier) {
	if n == nil {
		return
	}
	m.mu.Lock()
	m.notifiers = append(m.notifiers, n)
	m.mu.Unlock()
}

func (m *Multi) Notify(message string, severity domain.Severity) {
	m.mu.RLock()
	notifiers := append([]ports.Notifier(nil), m.notifiers...)
	m.mu.RUnlock()
	for _, n := range notifiers {
		n.Notify(message, severity)
	}
}

// OrDefault returns n, or a log notifier when n is nil.
func OrDefault(n ports.Notifier, log *logger.Logger) ports.Notifier {
	if n != nil {
		return n
	}
	return NewLogNotifier(log)
}
