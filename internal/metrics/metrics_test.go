package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// TestInit_RegistersWithoutPanic verifies that calling Init with a fresh
// registry does not panic. Successful registration is the invariant —
// if any metric descriptor is invalid or duplicated within the registry,
// MustRegister panics.
func TestInit_RegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg)
}

// TestInit_DoubleRegistrationPanics confirms that registering the same metric
// names twice to the same registry panics (standard prometheus behavior).
func TestInit_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on double registration, but Init did not panic")
		}
	}()
	Init(reg)
}

// TestEventsEmitted_CounterVec_Increments confirms the counter vec increments
// correctly via a new isolated registry.
func TestEventsEmitted_CounterVec_Increments(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_events_emitted_total",
	}, []string{"category"})
	reg.MustRegister(counter)

	counter.WithLabelValues("access").Inc()
	counter.WithLabelValues("access").Inc()
	counter.WithLabelValues("contents").Inc()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	var totalCount float64
	for _, mf := range mfs {
		if mf.GetName() == "test_events_emitted_total" {
			for _, m := range mf.GetMetric() {
				totalCount += m.GetCounter().GetValue()
			}
		}
	}

	if totalCount != 3 {
		t.Errorf("expected 3 total events, got %v", totalCount)
	}
}

// TestPoolSize_GaugeSetGet verifies the gauge can be set and read.
func TestPoolSize_GaugeSetGet(t *testing.T) {
	reg := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_pool_size",
	})
	reg.MustRegister(gauge)

	gauge.Set(7)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	var val float64
	for _, mf := range mfs {
		if mf.GetName() == "test_pool_size" {
			if len(mf.GetMetric()) > 0 {
				val = mf.GetMetric()[0].GetGauge().GetValue()
			}
		}
	}

	if val != 7 {
		t.Errorf("gauge value = %v; want 7", val)
	}
}

// TestHandler_Returns200 confirms the metrics HTTP handler responds correctly.
func TestHandler_Returns200(t *testing.T) {
	h := Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Handler() status = %d; want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "go_") && !strings.Contains(body, "# HELP") {
		t.Error("expected Prometheus text format in response body")
	}
}
