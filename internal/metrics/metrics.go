package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, route, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cronkit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// RequestTotal counts HTTP requests by method, route, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronkit_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// ScheduleFires counts daemon firings by schedule and status (fired, failed).
	ScheduleFires = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronkit_schedule_fires_total",
			Help: "Total number of schedule firings by schedule and status",
		},
		[]string{"schedule", "status"},
	)

	// SchedulesLoaded is the number of schedules the daemon is watching.
	SchedulesLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cronkit_schedules_loaded",
			Help: "Number of schedules watched by the daemon",
		},
	)

	// ReportRuns counts report runs by status (success, failure).
	ReportRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronkit_report_runs_total",
			Help: "Total number of report runs by status",
		},
		[]string{"status"},
	)

	// ReportBytes is the size of the last report written, before compression.
	ReportBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cronkit_report_last_bytes",
			Help: "Uncompressed size of the last report written",
		},
	)
)

var initOnce sync.Once

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, ScheduleFires, SchedulesLoaded, ReportRuns, ReportBytes)
	})
}

// RecordRequest records duration and count for an HTTP request. route should
// be the matched route pattern, not the raw path, to bound cardinality.
func RecordRequest(method, route string, statusCode int, durationSeconds float64) {
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, route, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, route, status).Inc()
}

func IncScheduleFires(schedule, status string) {
	ScheduleFires.WithLabelValues(schedule, status).Inc()
}

func SetSchedulesLoaded(n int) {
	SchedulesLoaded.Set(float64(n))
}

func RecordReport(status string, bytes int64) {
	ReportRuns.WithLabelValues(status).Inc()
	if bytes > 0 {
		ReportBytes.Set(float64(bytes))
	}
}
