package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveJob(t *testing.T) {
	m := New()
	m.ObserveJob("file:thumbnail", nil)
	m.ObserveJob("file:thumbnail", errors.New("boom"))
	m.ObserveJob("file:thumbnail", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobCount.WithLabelValues("file:thumbnail", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobCount.WithLabelValues("file:thumbnail", OutcomeFailure)))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RequestCount.WithLabelValues("/status", "OK").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `filevault_requests_total{path="/status",status="OK"} 1`)
}

func TestNew_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
