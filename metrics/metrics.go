// Package metrics records scheduler observability data. The Prometheus sink
// is optional; a NopSink keeps the engine silent when disabled.
package metrics

import "time"

// ReplanStats summarises one re-optimization run.
type ReplanStats struct {
	Reason      string
	RunID       string
	FrontSize   int
	Generations int
	Converged   bool
	Elapsed     time.Duration
}

// UtilizationStats is one utilization observation per resource type.
type UtilizationStats struct {
	Resource string
	Used     int
	Capacity int
}

// Sink records scheduler events for observability purposes.
type Sink interface {
	RecordReplan(ReplanStats) error
	RecordPreemption(taskID int) error
	RecordUtilization([]UtilizationStats) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordReplan(ReplanStats) error             { return nil }
func (NopSink) RecordPreemption(int) error                 { return nil }
func (NopSink) RecordUtilization([]UtilizationStats) error { return nil }

// Config selects the metrics backend.
type Config struct {
	PrometheusEnabled bool `json:"prometheus_enabled"`
	PrometheusPort    int  `json:"prometheus_port"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == 0 {
		c.PrometheusPort = 9090
	}
}
