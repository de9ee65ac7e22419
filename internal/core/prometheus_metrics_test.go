package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsRecorderObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()

	rec.Observe(ctx, "create_flow_cell", true, 25*time.Millisecond)
	rec.Observe(ctx, "create_flow_cell", true, 25*time.Millisecond)
	rec.Observe(ctx, "create_flow_cell", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	success := testutil.ToFloat64(rec.results.WithLabelValues("create_flow_cell", "success"))
	if success != 2 {
		t.Fatalf("success counter = %v, want 2", success)
	}
	failure := testutil.ToFloat64(rec.results.WithLabelValues("create_flow_cell", "error"))
	if failure != 1 {
		t.Fatalf("error counter = %v, want 1", failure)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	if !names["flowcore_service_operation_duration_seconds"] || !names["flowcore_service_operation_results_total"] {
		t.Fatalf("expected collectors registered, got %v", names)
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("second registration with the same registry must fail")
	}
}
