package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-membership-api/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestObserve_LogsAndCountsByRoute(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(Observe(zap.New(core), m))
	r.Get("/v1/members/{memberId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/members/JTA-00000001", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "/v1/members/{memberId}", entries[0].ContextMap()["route"])
		assert.Equal(t, int64(404), entries[0].ContextMap()["status"])
	}

	expected := `
# HELP membership_http_requests_total HTTP requests by route and status.
# TYPE membership_http_requests_total counter
membership_http_requests_total{method="GET",route="/v1/members/{memberId}",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "membership_http_requests_total"))
}

func TestObserve_NilMetrics(t *testing.T) {
	h := Observe(zap.NewNop(), nil)(http.HandlerFunc(okHandler))
	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() { h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil)) })
	assert.Equal(t, http.StatusOK, rr.Code)
}
