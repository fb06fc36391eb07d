package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests
	// Labels: method, route (chi pattern), status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesheet_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timesheet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// TimesheetActionsTotal counts lifecycle operations
	// Labels: action (save/submit/approve/reject/clear/delete), result (ok/error)
	TimesheetActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesheet_actions_total",
			Help: "Total number of timesheet lifecycle actions by result",
		},
		[]string{"action", "result"},
	)

	PendingGuardBlocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timesheet_pending_guard_blocks_total",
			Help: "Writes refused because the employee had pending timesheets",
		},
	)

	// EmailsTotal labels: template, status (sent/error)
	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesheet_emails_total",
			Help: "Total number of notification emails by template and status",
		},
		[]string{"template", "status"},
	)

	SSESubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timesheet_sse_subscribers",
			Help: "Number of connected event stream subscribers",
		},
	)
)

// RecordRequest records one finished HTTP request
func RecordRequest(method, route string, status int, durationSeconds float64) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordAction records a lifecycle action outcome
func RecordAction(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	TimesheetActionsTotal.WithLabelValues(action, result).Inc()
}

func RecordPendingBlock() {
	PendingGuardBlocksTotal.Inc()
}

func RecordEmail(template string, err error) {
	status := "sent"
	if err != nil {
		status = "error"
	}
	EmailsTotal.WithLabelValues(template, status).Inc()
}

func SetSSESubscribers(n int) {
	SSESubscribers.Set(float64(n))
}
