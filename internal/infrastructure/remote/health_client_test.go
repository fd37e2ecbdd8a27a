package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthClientCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"no content", http.StatusNoContent, false},
		{"server error", http.StatusServiceUnavailable, true},
		{"not found", http.StatusNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method = r.Method
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewHealthClient(HealthClientConfig{URL: srv.URL + "/health"}).Check(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrHealthCheck) {
				t.Errorf("error %v is not ErrHealthCheck", err)
			}
			if method != http.MethodHead {
				t.Errorf("method = %s, want HEAD", method)
			}
		})
	}
}

func TestHealthClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := NewHealthClient(HealthClientConfig{URL: url}).Check(context.Background()); !errors.Is(err, ErrHealthCheck) {
		t.Errorf("Check() error = %v", err)
	}
}
