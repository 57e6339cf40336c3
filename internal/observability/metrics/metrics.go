package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the scheduling flows.
type BookingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	intentLatency    prometheus.Histogram
	slotQueryLatency prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by origin and outcome",
		}, []string{"origin", "outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "scheduling",
			Name:      "transitions_total",
			Help:      "Appointment lifecycle transitions by target status and result",
		}, []string{"status", "result"}),
		intentLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telecare",
			Subsystem: "scheduling",
			Name:      "intent_latency_seconds",
			Help:      "Latency of the text-understanding collaborator",
			Buckets:   prometheus.DefBuckets,
		}),
		slotQueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telecare",
			Subsystem: "scheduling",
			Name:      "slot_query_latency_seconds",
			Help:      "Latency of availability computation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.intentLatency, m.slotQueryLatency)
	return m
}

func (m *BookingMetrics) ObserveBooking(origin, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(origin, outcome).Inc()
}

func (m *BookingMetrics) ObserveTransition(status, result string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(status, result).Inc()
}

func (m *BookingMetrics) ObserveIntentLatency(seconds float64) {
	if m == nil {
		return
	}
	m.intentLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveSlotQueryLatency(seconds float64) {
	if m == nil {
		return
	}
	m.slotQueryLatency.Observe(seconds)
}
