package adminhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sebas/distributor/internal/serializer"
)

func TestHealthzReportsBootedState(t *testing.T) {
	registry := serializer.NewRegistry(1000)
	s := New(registry, func() bool { return true }, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Data struct {
			Booted bool `json:"booted"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.Data.Booted {
		t.Fatal("expected booted=true")
	}
}

func TestHealthzReportsUnavailableWhenNotBooted(t *testing.T) {
	registry := serializer.NewRegistry(1000)
	s := New(registry, func() bool { return false }, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestDebugPoolListsSerializers(t *testing.T) {
	registry := serializer.NewRegistry(1000)
	sr, err := registry.Create("wrk-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer sr.Release()

	s := New(registry, func() bool { return true }, nil)
	req := httptest.NewRequest(http.MethodGet, "/debug/pool", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Data struct {
			Serializers map[string]int `json:"serializers"`
			Overloaded  bool           `json:"overloaded"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := body.Data.Serializers["wrk-1"]; !ok {
		t.Fatalf("expected wrk-1 in serializers map, got %+v", body.Data.Serializers)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	registry := serializer.NewRegistry(1000)
	s := New(registry, func() bool { return true }, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
