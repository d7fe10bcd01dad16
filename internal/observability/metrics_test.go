package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNewMetrics_DefaultNamespace(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")
	m.RecordRequest(http.MethodGet, "users", http.StatusOK, 5*time.Millisecond)

	assert.Contains(t, scrape(t, m), "gateway_requests_total")
}

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	m := NewMetrics("testreq")
	m.RecordRequest(http.MethodGet, "users", http.StatusOK, 5*time.Millisecond)
	m.RecordRequest(http.MethodGet, "users", http.StatusOK, 7*time.Millisecond)
	m.RecordRequest(http.MethodPost, "orders", http.StatusBadGateway, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `testreq_requests_total{method="GET",route="users",status="200"} 2`)
	assert.Contains(t, body, `testreq_requests_total{method="POST",route="orders",status="502"} 1`)
	assert.Contains(t, body, "testreq_request_duration_seconds_bucket")
}

func TestMetrics_UnmatchedRoute(t *testing.T) {
	t.Parallel()

	m := NewMetrics("testunmatched")
	m.RecordRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Contains(t, scrape(t, m),
		`testunmatched_requests_total{method="GET",route="unmatched",status="404"} 1`)
}

func TestMetrics_BackendErrors(t *testing.T) {
	t.Parallel()

	m := NewMetrics("testerr")
	m.RecordBackendError("users", "connect_failed")
	m.RecordBackendError("users", "timeout_read")

	body := scrape(t, m)
	assert.Contains(t, body, `testerr_backend_errors_total{reason="connect_failed",route="users"} 1`)
	assert.Contains(t, body, `testerr_backend_errors_total{reason="timeout_read",route="users"} 1`)
}

func TestMetrics_RoutesLoadedAndBuildInfo(t *testing.T) {
	t.Parallel()

	m := NewMetrics("testgauge")
	m.SetRoutesLoaded(7)
	m.SetBuildInfo("1.2.3")

	body := scrape(t, m)
	assert.Contains(t, body, "testgauge_routes_loaded 7")
	assert.Contains(t, body, `testgauge_build_info{version="1.2.3"} 1`)
}
