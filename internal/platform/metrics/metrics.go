// Package metrics exposes Prometheus collectors for the HTTP surface and the
// periodic sweeps.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	SweepRuns       *prometheus.CounterVec
	SweepAffected   *prometheus.CounterVec
	SweepDuration   *prometheus.HistogramVec
	RemindersSent   prometheus.Counter
	StockRejections prometheus.Counter
}

// New registers all collectors on a private registry, so tests can build
// as many instances as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinic_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_sweep_runs_total",
			Help: "Sweep executions by job and result",
		}, []string{"job", "result"}),
		SweepAffected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_sweep_records_affected_total",
			Help: "Records changed by sweeps",
		}, []string{"job"}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinic_sweep_duration_seconds",
			Help:    "Sweep duration by job",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"job"}),
		RemindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_certification_reminders_sent_total",
			Help: "Certification expiry reminders sent",
		}),
		StockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_stock_rejections_total",
			Help: "Stock adjustments rejected for insufficient quantity",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.SweepRuns,
		m.SweepAffected,
		m.SweepDuration,
		m.RemindersSent,
		m.StockRejections,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(route, c.Request().Method, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// ObserveSweep records one sweep run.
func (m *Metrics) ObserveSweep(job string, affected int, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SweepRuns.WithLabelValues(job, result).Inc()
	m.SweepAffected.WithLabelValues(job).Add(float64(affected))
	m.SweepDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) IncRemindersSent() { m.RemindersSent.Inc() }

func (m *Metrics) IncStockRejections() { m.StockRejections.Inc() }
