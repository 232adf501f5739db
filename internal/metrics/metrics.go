// Package metrics exposes Prometheus metrics for the HTTP API, the booking
// and optimizer flows, and the optimization job service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

const namespace = "launchworthy"

// Collector holds every metric. Each Collector owns its registry, so
// several can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	rateLimited    prometheus.Counter
	jobsFinished   *prometheus.CounterVec
	jobDuration    prometheus.Histogram
	bookings       *prometheus.CounterVec
	optimizerRuns  *prometheus.CounterVec
	usageDecisions *prometheus.CounterVec
}

// NewCollector creates and registers all metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Optimization jobs finished, by final status",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Optimization job run time",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_completed_total",
			Help:      "Paid bookings completed, by service",
		}, []string{"service"}),
		optimizerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_runs_total",
			Help:      "Optimizer submissions from the wizard, by outcome",
		}, []string{"outcome"}),
		usageDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_checks_total",
			Help:      "Usage gate checks, by whether the run was allowed",
		}, []string{"allowed"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.rateLimited,
		c.jobsFinished,
		c.jobDuration,
		c.bookings,
		c.optimizerRuns,
		c.usageDecisions,
	)
	return c
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRequest records one HTTP request
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RateLimited records a rejected request
func (c *Collector) RateLimited() {
	c.rateLimited.Inc()
}

// JobFinished records a finished optimization job
func (c *Collector) JobFinished(status types.JobStatus, elapsed time.Duration) {
	c.jobsFinished.WithLabelValues(string(status)).Inc()
	c.jobDuration.Observe(elapsed.Seconds())
}

// BookingCompleted records a completed booking
func (c *Collector) BookingCompleted(service types.ServiceID) {
	c.bookings.WithLabelValues(string(service)).Inc()
}

// OptimizerRun records the outcome of a wizard submission: "completed",
// "failed", "timeout", "rejected" or "error"
func (c *Collector) OptimizerRun(outcome string) {
	c.optimizerRuns.WithLabelValues(outcome).Inc()
}

// UsageChecked records a usage gate decision
func (c *Collector) UsageChecked(allowed bool) {
	c.usageDecisions.WithLabelValues(strconv.FormatBool(allowed)).Inc()
}
