package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

func TestJobMetrics(t *testing.T) {
	c := New()

	c.JobStarted()
	c.JobStarted()
	assert.InDelta(t, 2, testutil.ToFloat64(c.jobsInFlight), 0)

	c.JobFinished(domain.JobStatusCompleted, 3*time.Second, 0.05)
	c.JobFinished(domain.JobStatusFailed, time.Second, 0)

	assert.InDelta(t, 0, testutil.ToFloat64(c.jobsInFlight), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.jobsTotal.WithLabelValues("completed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.jobsTotal.WithLabelValues("failed")), 0)
	assert.InDelta(t, 0.05, testutil.ToFloat64(c.jobCost), 1e-9)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := New()

	r := gin.New()
	r.Use(c.Middleware())
	r.GET("/jobs/:id", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(c.Handler()))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/jobs/job_1", nil))
	require.Equal(t, http.StatusNoContent, resp.Code)

	assert.InDelta(t, 1, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/jobs/:id", "204")), 0)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "postsmith_http_requests_total")
	assert.Contains(t, resp.Body.String(), "go_goroutines")
}
