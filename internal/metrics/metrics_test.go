package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(exportsTotal.WithLabelValues("failed", "capture_failed"))
	ExportFailed("capture_failed")
	assert.Equal(t, before+1, testutil.ToFloat64(exportsTotal.WithLabelValues("failed", "capture_failed")))

	ExportStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(exportsInFlight))
	ExportFinished()
	assert.Equal(t, 0.0, testutil.ToFloat64(exportsInFlight))

	ExportSucceeded(3)
	ObserveStage("capture", 20*time.Millisecond)
	IncLockRejected()
}

func TestHandlerExposesNamespace(t *testing.T) {
	Init()
	ExportSucceeded(2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cvexport_exports_total")
	assert.Contains(t, rec.Body.String(), "cvexport_pages_per_export")
}
