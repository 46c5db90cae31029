package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for cart, checkout, and
// settlement observability. A nil *BusinessMetrics is valid and records
// nothing, so services can be built without metrics in tests.
type BusinessMetrics struct {
	// Cart
	CartLinesAdded *prometheus.CounterVec
	CartCleared    prometheus.Counter
	LinesDropped   *prometheus.CounterVec

	// Checkout funnel
	CheckoutStarted *prometheus.CounterVec
	Settlements     *prometheus.CounterVec
	SettlementValue prometheus.Histogram
	UnitsSold       prometheus.Counter

	// Payment gateway
	GatewayCalls   *prometheus.CounterVec
	GatewayLatency *prometheus.HistogramVec

	// Webhooks
	WebhookReceived *prometheus.CounterVec
	WebhookFailed   *prometheus.CounterVec

	// Background jobs
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
}

// NewBusinessMetrics creates and registers all business metrics on reg.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "storefront"
	}
	subsystem := "business"
	f := promauto.With(reg)

	return &BusinessMetrics{
		// =======================================================================
		// Cart
		// =======================================================================
		CartLinesAdded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_lines_added_total",
				Help:      "Total add-to-cart calls",
			},
			[]string{"category"},
		),
		CartCleared: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_cleared_total",
				Help:      "Total explicit cart clears",
			},
		),
		LinesDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_lines_dropped_total",
				Help:      "Cart lines dropped because their product no longer exists",
			},
			[]string{"stage"}, // stage: snapshot, checkout, settlement
		),

		// =======================================================================
		// Checkout funnel
		// =======================================================================
		CheckoutStarted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_started_total",
				Help:      "Checkout sessions requested",
			},
			[]string{"outcome"}, // outcome: created, empty_cart, error
		),
		Settlements: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "settlements_total",
				Help:      "Settlement attempts by outcome",
			},
			[]string{"outcome"}, // outcome: confirmed, already_settled, not_confirmed, failed, error
		),
		SettlementValue: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "settlement_value",
				Help:      "Subtotal of settled orders in major currency units",
				Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		UnitsSold: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "units_sold_total",
				Help:      "Units recorded as sold by settlements",
			},
		),

		// =======================================================================
		// Payment gateway
		// =======================================================================
		GatewayCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gateway_calls_total",
				Help:      "Payment gateway calls by operation and outcome",
			},
			[]string{"operation", "outcome"}, // outcome: ok, rejected, unavailable
		),
		GatewayLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gateway_duration_seconds",
				Help:      "Payment gateway call duration",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),

		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_received_total",
				Help:      "Verified gateway webhooks by event type",
			},
			[]string{"event_type"},
		),
		WebhookFailed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_failed_total",
				Help:      "Webhooks rejected or failed during processing",
			},
			[]string{"reason"},
		),

		// =======================================================================
		// Background jobs
		// =======================================================================
		JobsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_processed_total",
				Help:      "Background jobs processed successfully",
			},
			[]string{"job_type"},
		),
		JobsFailed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_failed_total",
				Help:      "Background job attempts that failed",
			},
			[]string{"job_type"},
		),
		JobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "job_duration_seconds",
				Help:      "Background job execution duration",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"job_type"},
		),
	}
}

func (m *BusinessMetrics) CartLineAdded(category string) {
	if m != nil {
		m.CartLinesAdded.WithLabelValues(category).Inc()
	}
}

func (m *BusinessMetrics) CartClearedByUser() {
	if m != nil {
		m.CartCleared.Inc()
	}
}

func (m *BusinessMetrics) LineDropped(stage string) {
	if m != nil {
		m.LinesDropped.WithLabelValues(stage).Inc()
	}
}

func (m *BusinessMetrics) Checkout(outcome string) {
	if m != nil {
		m.CheckoutStarted.WithLabelValues(outcome).Inc()
	}
}

func (m *BusinessMetrics) Settlement(outcome string) {
	if m != nil {
		m.Settlements.WithLabelValues(outcome).Inc()
	}
}

// Settled records the value and unit count of a confirmed settlement.
func (m *BusinessMetrics) Settled(subtotal float64, units int) {
	if m != nil {
		m.SettlementValue.Observe(subtotal)
		m.UnitsSold.Add(float64(units))
	}
}

// GatewayCall matches billing.CallObserver.
func (m *BusinessMetrics) GatewayCall(op, outcome string, elapsed time.Duration) {
	if m != nil {
		m.GatewayCalls.WithLabelValues(op, outcome).Inc()
		m.GatewayLatency.WithLabelValues(op).Observe(elapsed.Seconds())
	}
}

func (m *BusinessMetrics) Webhook(eventType string) {
	if m != nil {
		m.WebhookReceived.WithLabelValues(eventType).Inc()
	}
}

func (m *BusinessMetrics) WebhookFailure(reason string) {
	if m != nil {
		m.WebhookFailed.WithLabelValues(reason).Inc()
	}
}

// Job records one job attempt.
func (m *BusinessMetrics) Job(jobType string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(jobType).Observe(elapsed.Seconds())
	if err != nil {
		m.JobsFailed.WithLabelValues(jobType).Inc()
		return
	}
	m.JobsProcessed.WithLabelValues(jobType).Inc()
}
