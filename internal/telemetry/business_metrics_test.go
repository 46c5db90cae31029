package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBusinessMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics("test", reg)

	m.Settlement("confirmed")
	m.Settlement("confirmed")
	m.Settlement("already_settled")
	m.Settled(25, 3)
	m.GatewayCall("billing.get_session", "unavailable", 50*time.Millisecond)
	m.Job("email:order_receipt", time.Second, nil)
	m.Job("email:order_receipt", time.Second, errors.New("smtp down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Settlements.WithLabelValues("confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Settlements.WithLabelValues("already_settled")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.UnitsSold))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayCalls.WithLabelValues("billing.get_session", "unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues("email:order_receipt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsFailed.WithLabelValues("email:order_receipt")))
}

func TestBusinessMetrics_NilIsNoop(t *testing.T) {
	var m *BusinessMetrics

	assert.NotPanics(t, func() {
		m.CartLineAdded("men")
		m.CartClearedByUser()
		m.LineDropped("snapshot")
		m.Checkout("created")
		m.Settlement("confirmed")
		m.Settled(10, 1)
		m.GatewayCall("op", "ok", time.Millisecond)
		m.Webhook("checkout.session.completed")
		m.WebhookFailure("signature")
		m.Job("event:order_settled", time.Millisecond, nil)
	})
}
