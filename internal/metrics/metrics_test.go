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

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunStarted()
		m.JobStarted()
		m.JobFinished("failed", time.Second)
		m.Outcome("current")
		m.Window(WindowOK)
		m.RowsSaved(10)
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()

	m.RunStarted()
	m.JobStarted()
	m.JobStarted()
	m.JobFinished("persisted", 2*time.Second)
	m.Window(WindowOK)
	m.Window(WindowOK)
	m.Window(WindowError)
	m.RowsSaved(9)
	m.RowsSaved(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeJobs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("persisted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.windows.WithLabelValues(WindowOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.windows.WithLabelValues(WindowError)))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.rowsSaved))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RunStarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "msesync_runs_total 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
