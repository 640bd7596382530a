package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromSink records scheduler events in Prometheus metrics.
type PromSink struct {
	replans     *prometheus.CounterVec
	duration    prometheus.Histogram
	frontSize   prometheus.Gauge
	preemptions prometheus.Counter
	utilization *prometheus.GaugeVec
}

// NewPromSink registers scheduler metrics on the provided registerer. If reg
// is nil, the default registerer is used. Already-registered collectors are
// reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		replans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_replans_total",
			Help: "Total number of re-optimization runs",
		}, []string{"reason", "converged"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_replan_duration_seconds",
			Help:    "Wall-clock duration of re-optimization runs",
			Buckets: prometheus.DefBuckets,
		}),
		frontSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_pareto_front_size",
			Help: "Size of the most recent Pareto front",
		}),
		preemptions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_preemptions_total",
			Help: "Total number of preempted tasks",
		}),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_resource_utilization_ratio",
			Help: "Committed resource usage over capacity",
		}, []string{"resource"}),
	}

	var err error
	if s.replans, err = register(reg, s.replans); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.frontSize, err = register(reg, s.frontSize); err != nil {
		return nil, err
	}
	if s.preemptions, err = register(reg, s.preemptions); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, s.utilization); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds the collector, reusing the already-registered instance on a
// duplicate registration.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordReplan implements Sink.
func (s *PromSink) RecordReplan(st ReplanStats) error {
	s.replans.WithLabelValues(st.Reason, strconv.FormatBool(st.Converged)).Inc()
	s.duration.Observe(st.Elapsed.Seconds())
	s.frontSize.Set(float64(st.FrontSize))
	return nil
}

// RecordPreemption implements Sink.
func (s *PromSink) RecordPreemption(int) error {
	s.preemptions.Inc()
	return nil
}

// RecordUtilization implements Sink.
func (s *PromSink) RecordUtilization(stats []UtilizationStats) error {
	for _, u := range stats {
		ratio := 0.0
		if u.Capacity > 0 {
			ratio = float64(u.Used) / float64(u.Capacity)
		}
		s.utilization.WithLabelValues(u.Resource).Set(ratio)
	}
	return nil
}

// StartPromServer serves the Prometheus scrape endpoint on the given port.
func StartPromServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
