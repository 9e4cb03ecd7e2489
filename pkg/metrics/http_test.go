package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveRequestExportsSeries(t *testing.T) {
	m := NewHTTPMetrics()
	m.ObserveRequest("POST", "/api/v1/orders", 201, 120*time.Millisecond)
	m.ObserveRequest("", "", 500, time.Millisecond)
	m.IncCheckout("committed")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `http_requests_total{method="POST",route="/api/v1/orders",status="201"} 1`) {
		t.Fatalf("request counter missing from scrape:\n%s", body)
	}
	if !strings.Contains(body, `method="unknown"`) {
		t.Fatalf("empty labels should be normalized:\n%s", body)
	}
	if !strings.Contains(body, `checkout_attempts_total{outcome="committed"} 1`) {
		t.Fatalf("checkout counter missing from scrape:\n%s", body)
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *HTTPMetrics
	m.ObserveRequest("GET", "/", 200, time.Second)
	m.IncCheckout("aborted")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}
