// Package prometheus exports thread pool and strategy measurements as
// Prometheus collectors.
package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/asyncbench/core"
	"github.com/Swind/asyncbench/measure"
)

// DefaultNamespace prefixes every metric when no namespace is given.
const DefaultNamespace = "asyncbench"

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// DurationBuckets is used for per-task durations.
	DurationBuckets []float64
	// RunBuckets is used for whole strategy runs, which last much longer.
	RunBuckets []float64
}

// MetricsExporter records thread pool events (core.Metrics) and finished
// strategy runs (measure.Recorder).
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	queueDepth          *prom.GaugeVec

	runDurationSeconds *prom.HistogramVec
	runFailedTotal     *prom.CounterVec
}

var (
	_ core.Metrics     = (*MetricsExporter)(nil)
	_ measure.Recorder = (*MetricsExporter)(nil)
)

// NewMetricsExporter creates the collectors and registers them on reg.
// Registering twice on the same registry reuses the existing collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.ExponentialBuckets(1e-6, 4, 12)
	}
	runBuckets := opts.RunBuckets
	if len(runBuckets) == 0 {
		runBuckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"runner", "priority"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"runner"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected tasks.",
	}, []string{"runner", "reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current queue depth.",
	}, []string{"runner"})
	runDurationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "strategy_duration_seconds",
		Help:      "Wall-clock duration of one strategy run.",
		Buckets:   runBuckets,
	}, []string{"strategy"})
	runFailedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "strategy_failed_total",
		Help:      "Strategy runs that returned an error.",
	}, []string{"strategy"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if runDurationVec, err = registerCollector(reg, runDurationVec); err != nil {
		return nil, err
	}
	if runFailedVec, err = registerCollector(reg, runFailedVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		taskRejectedTotal:   rejectedVec,
		queueDepth:          queueDepthVec,
		runDurationSeconds:  runDurationVec,
		runFailedTotal:      runFailedVec,
	}, nil
}

// RecordTaskDuration records task execution duration.
func (m *MetricsExporter) RecordTaskDuration(runnerName string, priority core.TaskPriority, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(runnerName, "unknown"), priority.String()).Observe(duration.Seconds())
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(runnerName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(runnerName, "unknown")).Inc()
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(runnerName string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(runnerName, "unknown")).Set(float64(depth))
}

// RecordTaskRejected records task rejection events.
func (m *MetricsExporter) RecordTaskRejected(runnerName string, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(runnerName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// ObserveRun records one measured strategy run.
func (m *MetricsExporter) ObserveRun(label string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	label = normalizeLabel(label, "unknown")
	m.runDurationSeconds.WithLabelValues(label).Observe(elapsed.Seconds())
	if err != nil {
		m.runFailedTotal.WithLabelValues(label).Inc()
	}
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
