package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatd/chatd/internal/hub"
)

func TestHealthzReportsOKAndLiveSessionCount(t *testing.T) {
	h := hub.New(nil)
	router := NewRouter(h, nil, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !status.OK {
		t.Fatal("expected ok:true")
	}
	if status.LiveSessions != 0 {
		t.Fatalf("expected 0 live sessions, got %d", status.LiveSessions)
	}
}

func TestHealthzHandlesNilHub(t *testing.T) {
	router := NewRouter(nil, nil, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with a nil hub, got %d", rec.Code)
	}
}

func TestMetricsEndpointServesPrometheusText(t *testing.T) {
	router := NewRouter(nil, nil, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected a non-empty metrics body")
	}
}
