package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCountsResolutions(t *testing.T) {
	m := NewMetricsService()
	m.ObserveResolution(OutcomeSuccess)
	m.ObserveResolution(OutcomeSuccess)
	m.ObserveResolution(OutcomeBadPassword)
	m.ObserveLinkCreated("employees", true)
	m.ObserveHash("verify", 20*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeBadPassword)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.linksCreated.WithLabelValues("employees", "true")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "share_link_resolutions_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveResolution(OutcomeExpired)
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
		m.ObserveLinkRevoked()
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
