package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/dismissal/core/dismissal"
	"github.com/trezcool/dismissal/core/metrics"
)

var healthStatuses = []string{dismissal.StatusNoData, dismissal.StatusHealthy, dismissal.StatusWarning, dismissal.StatusCritical}

// Recorder exposes engine activity as prometheus metrics. A nil Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	aggregationRuns     *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
	aggregatedEvents    prometheus.Gauge
	recordsAnalyzed     *prometheus.CounterVec
	healthScore         prometheus.Gauge
	healthStatus        *prometheus.GaugeVec
	httpRequestsTotal   *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

var (
	_ dismissal.Observer  = (*Recorder)(nil)
	_ metrics.RunObserver = (*Recorder)(nil)
)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		aggregationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_aggregation_runs_total",
			Help: "Total aggregation runs by outcome.",
		}, []string{"outcome"}),
		aggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dismissal_aggregation_duration_seconds",
			Help:    "Histogram of aggregation run durations.",
			Buckets: prometheus.DefBuckets,
		}),
		aggregatedEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dismissal_aggregated_events",
			Help: "Events read by the last successful aggregation run.",
		}),
		recordsAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_records_analyzed_total",
			Help: "Total event records read by analysis reports.",
		}, []string{"report"}),
		healthScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dismissal_health_score",
			Help: "Last computed data health score (0-100).",
		}),
		healthStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dismissal_health_status",
			Help: "1 for the last computed data health status, 0 for the others.",
		}, []string{"status"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.aggregationRuns,
		r.aggregationDuration,
		r.aggregatedEvents,
		r.recordsAnalyzed,
		r.healthScore,
		r.healthStatus,
		r.httpRequestsTotal,
		r.httpDuration,
	)
	for _, s := range healthStatuses {
		r.healthStatus.WithLabelValues(s).Set(0)
	}
	return r
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) AggregationFinished(res metrics.RunResult, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else {
		r.aggregatedEvents.Set(float64(res.Events))
	}
	r.aggregationRuns.WithLabelValues(outcome).Inc()
	r.aggregationDuration.Observe(res.Duration.Seconds())
}

func (r *Recorder) RecordsAnalyzed(report string, n int) {
	if r == nil {
		return
	}
	r.recordsAnalyzed.WithLabelValues(report).Add(float64(n))
}

func (r *Recorder) HealthReported(report dismissal.HealthReport) {
	if r == nil {
		return
	}
	r.healthScore.Set(float64(report.HealthScore))
	for _, s := range healthStatuses {
		v := 0.0
		if s == report.Status {
			v = 1
		}
		r.healthStatus.WithLabelValues(s).Set(v)
	}
}

// Middleware counts requests and observes their duration per route.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if r == nil {
				return err
			}

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			r.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
			r.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
