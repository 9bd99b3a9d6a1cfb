package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "clinic"

// ReservationMetrics exposes counters for the reservation lifecycle.
type ReservationMetrics struct {
	created       *prometheus.CounterVec
	canceled      *prometheus.CounterVec
	statusChanged *prometheus.CounterVec
	conflicts     prometheus.Counter
	cacheLookups  *prometheus.CounterVec
}

// BookingConflictsMetric is the fully-qualified name of the conflict counter.
const BookingConflictsMetric = namespace + "_reservations_booking_conflicts_total"

func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	m := &ReservationMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservations",
			Name:      "created_total",
			Help:      "Reservations created",
		}, []string{"status"}),
		canceled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservations",
			Name:      "canceled_total",
			Help:      "Reservations canceled, by actor role",
		}, []string{"actor"}),
		statusChanged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservations",
			Name:      "status_changed_total",
			Help:      "Admin status transitions",
		}, []string{"from", "to"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reservations",
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "timeslots",
			Name:      "availability_cache_total",
			Help:      "Availability cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.created, m.canceled, m.statusChanged, m.conflicts, m.cacheLookups)
	return m
}

func (m *ReservationMetrics) ObserveCreated(status string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(status).Inc()
}

func (m *ReservationMetrics) ObserveCanceled(actor string) {
	if m == nil {
		return
	}
	m.canceled.WithLabelValues(actor).Inc()
}

func (m *ReservationMetrics) ObserveStatusChange(from, to string) {
	if m == nil {
		return
	}
	m.statusChanged.WithLabelValues(from, to).Inc()
}

func (m *ReservationMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// ObserveCache records an availability cache hit, miss or error.
func (m *ReservationMetrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
