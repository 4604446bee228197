package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObservePoolDepthsSetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObservePoolDepths(map[string]int{"wrk-1": 3})

	m := &dto.Metric{}
	if err := c.SerializerDepth.WithLabelValues("wrk-1").Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 3 {
		t.Fatalf("gauge value = %v, want 3", got)
	}
}

func TestSetOverloadedTogglesGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetOverloaded(true)
	m := &dto.Metric{}
	if err := c.Overloaded.Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 1 {
		t.Fatalf("gauge value = %v, want 1", got)
	}

	c.SetOverloaded(false)
	m = &dto.Metric{}
	if err := c.Overloaded.Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 0 {
		t.Fatalf("gauge value = %v, want 0", got)
	}
}
