package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts order-engine outcomes.
type CheckoutMetrics struct {
	ordersCreated      prometheus.Counter
	oversellConflicts  prometheus.Counter
	paymentResolutions *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders committed by the checkout coordinator.",
	})
	oversellConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_oversell_conflicts_total",
		Help: "Checkout attempts rejected for insufficient stock.",
	})
	paymentResolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_resolutions_total",
		Help: "Payment lifecycle resolutions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(ordersCreated, oversellConflicts, paymentResolutions)
	return &CheckoutMetrics{
		ordersCreated:      ordersCreated,
		oversellConflicts:  oversellConflicts,
		paymentResolutions: paymentResolutions,
	}
}

// IncOrdersCreated counts a committed order.
func (m *CheckoutMetrics) IncOrdersCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

// IncOversellConflict counts a stock-conflict rejection.
func (m *CheckoutMetrics) IncOversellConflict() {
	if m == nil || m.oversellConflicts == nil {
		return
	}
	m.oversellConflicts.Inc()
}

// IncPaymentResolution counts a confirm/fail resolution by outcome label.
func (m *CheckoutMetrics) IncPaymentResolution(outcome string) {
	if m == nil || m.paymentResolutions == nil {
		return
	}
	m.paymentResolutions.WithLabelValues(normalizeLabel(outcome)).Inc()
}
