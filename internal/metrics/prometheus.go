// Package metrics exposes Prometheus metrics for the rental backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics holds all Prometheus metrics. Every method is safe on a nil
// receiver so components can run without instrumentation.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	rentalEvents     *prometheus.CounterVec
	paymentsTotal    prometheus.Counter
	paymentsAmount   prometheus.Counter
	outstanding      prometheus.Gauge
	dueRentals       *prometheus.GaugeVec
	vehiclesByStatus *prometheus.GaugeVec
	jobRuns          *prometheus.CounterVec
	remindersSent    prometheus.Counter
}

var globalMetrics *Metrics

// NewMetrics creates and registers the metrics once per process.
func NewMetrics() *Metrics {
	if globalMetrics != nil {
		return globalMetrics
	}

	globalMetrics = &Metrics{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "locar_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "locar_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		requestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "locar_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		rentalEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "locar_rental_events_total",
				Help: "Rental lifecycle transitions",
			},
			[]string{"event"},
		),
		paymentsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "locar_payments_recorded_total",
				Help: "Installment payments recorded",
			},
		),
		paymentsAmount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "locar_payments_amount_total",
				Help: "Sum of recorded installment amounts",
			},
		),
		outstanding: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "locar_outstanding_balance",
				Help: "Outstanding balance over active rentals",
			},
		),
		dueRentals: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "locar_active_rentals",
				Help: "Active rentals by due status of the next installment",
			},
			[]string{"due_status"},
		),
		vehiclesByStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "locar_vehicles",
				Help: "Vehicles by status",
			},
			[]string{"status"},
		),
		jobRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "locar_job_runs_total",
				Help: "Scheduled job executions",
			},
			[]string{"job", "result"},
		),
		remindersSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "locar_installment_reminders_sent_total",
				Help: "Installment reminder emails sent",
			},
		),
	}

	return globalMetrics
}

// RecordHTTPRequest records metrics for an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) IncRequestsInFlight() {
	if m != nil {
		m.requestsInFlight.Inc()
	}
}

func (m *Metrics) DecRequestsInFlight() {
	if m != nil {
		m.requestsInFlight.Dec()
	}
}

// RentalEvent counts a lifecycle transition such as "created" or "closed".
func (m *Metrics) RentalEvent(event string) {
	if m != nil {
		m.rentalEvents.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) PaymentRecorded(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.paymentsTotal.Inc()
	m.paymentsAmount.Add(amount.InexactFloat64())
}

// SetReceivables publishes the outstanding balance and the number of active
// rentals per due status.
func (m *Metrics) SetReceivables(outstanding decimal.Decimal, byStatus map[string]int) {
	if m == nil {
		return
	}
	m.outstanding.Set(outstanding.InexactFloat64())
	m.dueRentals.Reset()
	for status, n := range byStatus {
		m.dueRentals.WithLabelValues(status).Set(float64(n))
	}
}

func (m *Metrics) SetVehicles(status string, n int32) {
	if m != nil {
		m.vehiclesByStatus.WithLabelValues(status).Set(float64(n))
	}
}

func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}

func (m *Metrics) ReminderSent() {
	if m != nil {
		m.remindersSent.Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
