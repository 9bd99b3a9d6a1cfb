package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestReservationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReservationMetrics(reg)
	m.ObserveCreated("CONFIRMED")
	m.ObserveCreated("CONFIRMED")
	m.ObserveCanceled("USER")
	m.ObserveStatusChange("CONFIRMED", "PENDING")
	m.ObserveConflict()
	m.ObserveCache("hit")

	if got := testutil.ToFloat64(m.created.WithLabelValues("CONFIRMED")); got != 2 {
		t.Fatalf("expected 2 created, got %v", got)
	}
	if got := testutil.ToFloat64(m.conflicts); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == BookingConflictsMetric {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s to be registered", BookingConflictsMetric)
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.ObserveRequest("GET", "/v1/timeslots", 200, 0.01)
	m.ObserveRequest("GET", "", 404, 0.001)

	if got := testutil.CollectAndCount(m.duration); got != 2 {
		t.Fatalf("expected 2 series, got %d", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *ReservationMetrics
	m.ObserveCreated("CONFIRMED")
	m.ObserveCanceled("ADMIN")
	m.ObserveStatusChange("PENDING", "CONFIRMED")
	m.ObserveConflict()
	m.ObserveCache("miss")

	var h *HTTPMetrics
	h.ObserveRequest("GET", "/", 200, 0.1)
}

func TestCounterValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReservationMetrics(reg)

	got, err := CounterValue(reg, BookingConflictsMetric)
	if err != nil || got != 0 {
		t.Fatalf("expected 0, got %v (%v)", got, err)
	}

	m.ObserveConflict()
	m.ObserveConflict()
	got, err = CounterValue(reg, BookingConflictsMetric)
	if err != nil || got != 2 {
		t.Fatalf("expected 2, got %v (%v)", got, err)
	}

	if _, err := CounterValue(reg, "clinic_missing_total"); err != nil {
		t.Fatalf("missing counter should read as zero: %v", err)
	}
}
