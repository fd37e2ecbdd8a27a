package handlers

import (
	"testing"

	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
)

func TestNotificationHubBroadcasts(t *testing.T) {
	hub := NewNotificationHub(logger.NewNop())
	hub.Notify("nobody listening", domain.SeverityInfo)

	id1, ch1 := hub.subscribe()
	_, ch2 := hub.subscribe()
	if hub.Subscribers() != 2 {
		t.Fatalf("Subscribers() = %d", hub.Subscribers())
	}

	hub.Notify("You are back online", domain.SeveritySuccess)
	for i, ch := range []<-chan domain.Notification{ch1, ch2} {
		n := <-ch
		if n.Message != "You are back online" || n.Severity != domain.SeveritySuccess || n.Time.IsZero() {
			t.Errorf("subscriber %d got %+v", i, n)
		}
	}

	hub.unsubscribe(id1)
	hub.Notify("second", domain.SeverityWarning)
	if n := <-ch2; n.Message != "second" {
		t.Errorf("got %+v", n)
	}
	select {
	case n := <-ch1:
		t.Errorf("unsubscribed client got %+v", n)
	default:
	}
}

func TestNotificationHubDropsWhenFull(t *testing.T) {
	hub := NewNotificationHub(logger.NewNop())
	_, ch := hub.subscribe()
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Notify("spam", domain.SeverityInfo)
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}
