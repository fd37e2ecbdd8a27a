package logger

import (
	"path/filepath"
	"testing"

	"github.com/taskextreme/backend/internal/config"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(config.LoggerConfig{
		Level:       "debug",
		Encoding:    "json",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Named("test").Infow("logger_test_event", "key", "value")
	_ = log.Sync()
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "loud"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !log.Desugar().Core().Enabled(0) {
		t.Error("info level should be enabled after fallback")
	}
}
