package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	if err := s.RecordReplan(ReplanStats{
		Reason: "tick", RunID: "r1", FrontSize: 7,
		Generations: 40, Converged: true, Elapsed: 2 * time.Second,
	}); err != nil {
		t.Fatalf("record replan: %v", err)
	}
	if got := testutil.ToFloat64(s.replans.WithLabelValues("tick", "true")); got != 1 {
		t.Fatalf("replans counter = %v", got)
	}
	if got := testutil.ToFloat64(s.frontSize); got != 7 {
		t.Fatalf("front size gauge = %v", got)
	}

	if err := s.RecordPreemption(3); err != nil {
		t.Fatalf("record preemption: %v", err)
	}
	if got := testutil.ToFloat64(s.preemptions); got != 1 {
		t.Fatalf("preemptions = %v", got)
	}

	if err := s.RecordUtilization([]UtilizationStats{
		{Resource: "crane", Used: 1, Capacity: 2},
		{Resource: "ghost", Used: 1, Capacity: 0},
	}); err != nil {
		t.Fatalf("record utilization: %v", err)
	}
	if got := testutil.ToFloat64(s.utilization.WithLabelValues("crane")); got != 0.5 {
		t.Fatalf("utilization ratio = %v", got)
	}
	if got := testutil.ToFloat64(s.utilization.WithLabelValues("ghost")); got != 0 {
		t.Fatalf("zero-capacity ratio = %v", got)
	}
}

func TestPromSinkDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("second registration should reuse collectors: %v", err)
	}
}

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	if err := s.RecordReplan(ReplanStats{}); err != nil {
		t.Fatalf("nop replan: %v", err)
	}
	if err := s.RecordPreemption(1); err != nil {
		t.Fatalf("nop preemption: %v", err)
	}
	if err := s.RecordUtilization(nil); err != nil {
		t.Fatalf("nop utilization: %v", err)
	}
}
