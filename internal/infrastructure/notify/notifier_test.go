package notify

import (
	"testing"

	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/testutil"
)

func TestMultiFansOut(t *testing.T) {
	a, b := &testutil.Recorder{}, &testutil.Recorder{}
	m := NewMulti(a, nil, b)

	m.Notify("saved", domain.SeveritySuccess)

	for i, r := range []*testutil.Recorder{a, b} {
		got := r.All()
		if len(got) != 1 || got[0].Message != "saved" || got[0].Severity != domain.SeveritySuccess {
			t.Errorf("recorder %d got %+v", i, got)
		}
	}
}

func TestOrDefault(t *testing.T) {
	r := &testutil.Recorder{}
	if OrDefault(r, logger.NewNop()) != r {
		t.Error("OrDefault should keep a non-nil notifier")
	}
	n := OrDefault(nil, logger.NewNop())
	if _, ok := n.(*LogNotifier); !ok {
		t.Errorf("OrDefault(nil) = %T, want *LogNotifier", n)
	}
	n.Notify("offline", domain.SeverityWarning)
}
