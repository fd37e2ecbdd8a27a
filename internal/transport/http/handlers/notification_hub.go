package handlers

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
)

const subscriberBuffer = 16

// NotificationHub is a Notifier that broadcasts to websocket clients.
type NotificationHub struct {
	logger *logger.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]chan domain.Notification
}

func NewNotificationHub(logger *logger.Logger) *NotificationHub {
	return &NotificationHub{logger: logger, subs: make(map[int]chan domain.Notification)}
}

// Notify never blocks: a subscriber whose buffer is full misses the message.
func (h *NotificationHub) Notify(message string, severity domain.Severity) {
	n := domain.Notification{Message: message, Severity: severity, Time: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.logger.Warnw("notification_dropped", "subscriber", id, "message", message)
		}
	}
}

func (h *NotificationHub) subscribe() (int, <-chan domain.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan domain.Notification, subscriberBuffer)
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

func (h *NotificationHub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Subscribers reports how many clients are attached.
func (h *NotificationHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Handle streams notifications to one websocket client until it goes away.
func (h *NotificationHub) Handle(c *websocket.Conn) {
	id, ch := h.subscribe()
	defer h.unsubscribe(id)
	h.logger.Infow("notification_client_connected", "subscriber", id)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case n := <-ch:
			if err := c.WriteJSON(n); err != nil {
				h.logger.Warnw("notification_write_failed", "subscriber", id, "error", err)
				return
			}
		case <-closed:
			h.logger.Infow("notification_client_disconnected", "subscriber", id)
			return
		}
	}
}
