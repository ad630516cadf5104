package metricsvc

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	m.ObservePayment("success")
	m.ObservePayment("success")
	m.ObservePayment("failure")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.payments.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payments.WithLabelValues("failure")))

	m.ObserveGeneration("lesson_plan", true, 1200*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aiGenerations.WithLabelValues("lesson_plan", "true")))

	done := m.TrackInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpInFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))

	m.ObserveHTTP(http.MethodGet, "/v1/classes/:id", http.StatusOK, 10*time.Millisecond)
	m.ObserveJob("mark_overdue_fees", false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `educonnect_http_requests_total{method="GET",route="/v1/classes/:id",status="200"} 1`)
	assert.Contains(t, string(body), `educonnect_scheduler_job_runs_total{job="mark_overdue_fees",success="false"} 1`)
}
