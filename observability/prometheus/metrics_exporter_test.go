package prometheus

import (
	"errors"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/asyncbench/core"
)

// TestMetricsExporter_RecordMethods verifies the thread pool metrics
// Given: a fresh registry
// When: every core.Metrics method is called once
// Then: each collector holds exactly that observation
func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	require.NoError(t, err)

	exporter.RecordTaskDuration("parallel", core.TaskPriorityUserVisible, 250*time.Microsecond)
	exporter.RecordTaskPanic("parallel", "boom")
	exporter.RecordQueueDepth("parallel", 7)
	exporter.RecordTaskRejected("parallel", "shutdown")

	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("parallel")))
	assert.Equal(t, 7.0, testutil.ToFloat64(exporter.queueDepth.WithLabelValues("parallel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.taskRejectedTotal.WithLabelValues("parallel", "shutdown")))

	count, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("parallel", "user_visible"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

// TestMetricsExporter_ObserveRun verifies strategy run recording
// Given: an exporter
// When: one successful and one failed run are observed
// Then: both land in the duration histogram and only the failure is counted
func TestMetricsExporter_ObserveRun(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("bench", reg, ExporterOptions{})
	require.NoError(t, err)

	exporter.ObserveRun("Main_Sync_Serial", 2*time.Second, nil)
	exporter.ObserveRun("Main_Sync_Serial", time.Second, errors.New("failed"))

	count, err := histogramSampleCount(exporter.runDurationSeconds.WithLabelValues("Main_Sync_Serial"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.runFailedTotal.WithLabelValues("Main_Sync_Serial")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "bench_strategy_duration_seconds")
}

// TestMetricsExporter_AlreadyRegisteredReuse verifies shared collectors
// Given: two exporters on the same registry
// When: both record a panic
// Then: they share one counter
func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("", reg, ExporterOptions{})
	require.NoError(t, err)
	second, err := NewMetricsExporter("", reg, ExporterOptions{})
	require.NoError(t, err)

	first.RecordTaskPanic("runner-a", nil)
	second.RecordTaskPanic("runner-a", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(first.taskPanicTotal.WithLabelValues("runner-a")))
}

// TestMetricsExporter_NilSafe verifies a nil exporter is a no-op
func TestMetricsExporter_NilSafe(t *testing.T) {
	var exporter *MetricsExporter

	assert.NotPanics(t, func() {
		exporter.RecordTaskPanic("x", nil)
		exporter.ObserveRun("x", time.Second, nil)
	})
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
