package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New("tracker")

	m.EventProcessed("start", "ok")
	m.EventProcessed("start", "ok")
	m.EventProcessed("stop", "not_found")
	m.SerialAssociated("conflict")
	m.AlertChanged("resolve", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("start", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("stop", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.serials.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts.WithLabelValues("resolve", "ok")))
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	m := New("tracker")
	m.ObserveHTTP(http.MethodPost, "/api/eventos", http.StatusOK, 12*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `prodline_http_requests_total{method="POST",route="/api/eventos",service="tracker",status="200"} 1`), body)
	assert.Contains(t, body, "prodline_http_request_duration_seconds_bucket")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.EventProcessed("start", "ok")
	m.SerialAssociated("ok")
	m.AlertChanged("open", "ok")
	m.ObserveHTTP(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
