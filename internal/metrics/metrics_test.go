package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))

	return metric.GetCounter().GetValue()
}

func TestRecorder(t *testing.T) {
	before := counterValue(t, statusTransitions.WithLabelValues("SAVED", "APPLIED"))

	Recorder{}.StatusChanged("SAVED", "APPLIED")
	Recorder{}.ApplicationCreated("SAVED")
	Recorder{}.FileUploaded("resumes")

	assert.Equal(t, before+1, counterValue(t, statusTransitions.WithLabelValues("SAVED", "APPLIED")))
	assert.GreaterOrEqual(t, counterValue(t, applicationsCreated.WithLabelValues("SAVED")), 1.0)
	assert.GreaterOrEqual(t, counterValue(t, fileUploads.WithLabelValues("resumes")), 1.0)
}

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(InstrumentHandler)
	router.Get("/applications/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	router.Handle("/metrics", Handler())

	before := counterValue(t, httpRequests.WithLabelValues(http.MethodGet, "/applications/{id}", "403"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/applications/123", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	after := counterValue(t, httpRequests.WithLabelValues(http.MethodGet, "/applications/{id}", "403"))
	assert.Equal(t, before+1, after)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jobtracker_http_requests_total")
}
