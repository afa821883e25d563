// Command asyncbench runs every collection-filling strategy once and prints
// how long each took.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Swind/asyncbench"
	"github.com/Swind/asyncbench/config"
	"github.com/Swind/asyncbench/core"
	"github.com/Swind/asyncbench/measure"
	"github.com/Swind/asyncbench/observability/prometheus"
	"github.com/Swind/asyncbench/provider"
	"github.com/Swind/asyncbench/strategy"
)

const snapshotInterval = 100 * time.Millisecond

func main() {
	app := &cli.App{
		Name:  "asyncbench",
		Usage: "compare concurrency disciplines for filling integer collections",
		Flags: config.Flags(),
		Action: func(c *cli.Context) error {
			cfg, err := config.FromCLI(c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
			}
			if err := run(c.Context, cfg, c.App.Writer, c.App.ErrWriter); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires the configuration into the pool, the counter and the strategies,
// then executes the whole suite.
func run(ctx context.Context, cfg config.Config, out, errOut io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	zl := zerolog.New(zerolog.ConsoleWriter{Out: errOut, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Str("run_id", runID).
		Str("component", "asyncbench").
		Logger()
	logger := core.NewZerologLogger(zl)

	registry := prom.NewRegistry()
	exporter, err := prometheus.NewMetricsExporter("", registry, prometheus.ExporterOptions{})
	if err != nil {
		return fmt.Errorf("metrics exporter: %w", err)
	}

	schedulerConfig := &core.TaskSchedulerConfig{
		Logger:              logger,
		PanicHandler:        &core.LoggingPanicHandler{Logger: logger},
		Metrics:             exporter,
		RejectedTaskHandler: &core.LoggingRejectedTaskHandler{Logger: logger},
	}
	asyncbench.InitGlobalThreadPool(cfg.Workers, schedulerConfig)
	defer asyncbench.ShutdownGlobalThreadPool()
	pool := asyncbench.GetGlobalThreadPool()

	providerOpts := cfg.ProviderOptions()
	providerOpts.Logger = logger
	counter := provider.NewCounter(providerOpts)

	poller, err := prometheus.NewSnapshotPoller("", registry, snapshotInterval)
	if err != nil {
		return fmt.Errorf("snapshot poller: %w", err)
	}
	poller.AddPool(pool.ID(), pool)
	poller.AddSource("counter", counter)
	poller.Start(ctx)
	defer poller.Stop()

	bench, err := strategy.New(strategy.Options{
		Source:       counter,
		Size:         cfg.Size,
		Pool:         pool,
		Workers:      cfg.Workers,
		Random:       cfg.Random,
		PrintThreads: cfg.PrintThreads,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	defer bench.Close()

	meter := measure.NewMeter(cfg.SimulateDelay, cfg.Size,
		measure.WithWriter(out),
		measure.WithLogger(logger),
		measure.WithRecorder(exporter),
	)

	logger.Info("starting benchmark",
		core.F("size", cfg.Size),
		core.F("workers", cfg.Workers),
		core.F("simulate_delay", cfg.SimulateDelay),
		core.F("delay", cfg.Delay),
		core.F("random", cfg.Random),
	)

	started := time.Now()
	err = bench.RunAll(ctx, meter, strategy.SuiteOptions{
		Out:         out,
		LogPhases:   cfg.LogPhases,
		PrintResult: cfg.PrintResult,
	})
	if err != nil {
		logger.Error("benchmark failed", core.F("error", err))
		return err
	}
	logger.Info("benchmark finished", core.F("elapsed", time.Since(started)))

	if cfg.Metrics {
		poller.Stop()
		return dumpMetrics(out, registry)
	}
	return nil
}

// dumpMetrics prints one line per sample of every gathered family.
func dumpMetrics(out io.Writer, gatherer prom.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	fmt.Fprintln(out, "Metrics")
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			fmt.Fprintf(out, "%s%s %s\n", family.GetName(), formatLabels(metric.GetLabel()), formatValue(family.GetType(), metric))
		}
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	labels := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		labels = append(labels, fmt.Sprintf("%s=%q", pair.GetName(), pair.GetValue()))
	}
	sort.Strings(labels)
	return "{" + strings.Join(labels, ",") + "}"
}

func formatValue(kind dto.MetricType, metric *dto.Metric) string {
	switch kind {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", metric.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", metric.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := metric.GetHistogram()
		return fmt.Sprintf("count=%d sum=%.6f", h.GetSampleCount(), h.GetSampleSum())
	default:
		return "?"
	}
}
