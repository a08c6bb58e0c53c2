// Package metrics exposes Prometheus collectors for jobs and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/postsmith/internal/core/domain"
)

const namespace = "postsmith"

// Collector owns a private registry so tests and multiple servers in one
// process do not collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	jobsInFlight prometheus.Gauge
	jobsTotal    *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobCost      prometheus.Counter

	httpDuration *prometheus.SummaryVec
	httpRequests *prometheus.CounterVec
}

// New creates a collector with Go runtime and process metrics registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		jobsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Jobs currently being processed",
		}),
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished jobs by terminal status",
		}, []string{"status"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall-clock job duration",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
		jobCost: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_cost_usd_total",
			Help:      "Accumulated generation and asset cost of finished jobs",
		}),
		httpDuration: factory.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.99: 0.001,
			},
		}, []string{"method", "path", "status_code"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
	}
}

// JobStarted records a job entering processing.
func (c *Collector) JobStarted() {
	c.jobsInFlight.Inc()
}

// JobFinished records a job's terminal status, duration and cost.
func (c *Collector) JobFinished(status domain.JobStatus, duration time.Duration, cost float64) {
	c.jobsInFlight.Dec()
	c.jobsTotal.WithLabelValues(string(status)).Inc()
	c.jobDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
	if cost > 0 {
		c.jobCost.Add(cost)
	}
}

// Middleware records request counts and latencies by route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(ctx.Writer.Status())
		c.httpDuration.WithLabelValues(ctx.Request.Method, path, status).Observe(time.Since(start).Seconds())
		c.httpRequests.WithLabelValues(ctx.Request.Method, path, status).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
