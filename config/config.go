// Package config reads the benchmark settings from flags and the environment.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Swind/asyncbench/core"
	"github.com/Swind/asyncbench/provider"
)

const (
	DefaultSize     = 80_000
	DefaultLogLevel = "info"

	// MaxWorkers is the largest worker count the parallel runner supports.
	MaxWorkers = core.MaxParallelConcurrency
)

var (
	ErrInvalidSize    = errors.New("size must not be negative")
	ErrInvalidDelay   = errors.New("delay must not be negative")
	ErrInvalidWorkers = fmt.Errorf("workers must be between 1 and %d", MaxWorkers)
)

// Flag names, shared by Flags and FromCLI.
const (
	flagSize          = "size"
	flagSimulateDelay = "simulate-delay"
	flagDelay         = "delay"
	flagPrintThreads  = "print-threads"
	flagPrintResult   = "print-result"
	flagRandom        = "random"
	flagWorkers       = "workers"
	flagLogLevel      = "log-level"
	flagMetrics       = "metrics"
	flagLogPhases     = "log-phases"
)

// Config is read once at startup and never changes during a run.
type Config struct {
	Size          int
	SimulateDelay bool
	Delay         time.Duration
	PrintThreads  bool
	PrintResult   bool
	Random        bool
	Workers       int
	LogLevel      string
	Metrics       bool
	LogPhases     bool
}

// Default returns the settings used when no flag or variable is set.
func Default() Config {
	return Config{
		Size:          DefaultSize,
		SimulateDelay: true,
		Delay:         provider.DefaultDelay,
		Workers:       runtime.NumCPU(),
		LogLevel:      DefaultLogLevel,
		LogPhases:     true,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Size < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, c.Size)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDelay, c.Delay)
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// ProviderOptions maps the settings onto the counter source.
func (c Config) ProviderOptions() provider.Options {
	return provider.Options{
		SimulateDelay: c.SimulateDelay,
		Delay:         c.Delay,
		PrintThreads:  c.PrintThreads,
	}
}

// Flags declares every setting with its environment variable.
func Flags() []cli.Flag {
	def := Default()
	return []cli.Flag{
		&cli.IntFlag{
			Name:    flagSize,
			Aliases: []string{"n"},
			Usage:   "number of values in every collection",
			EnvVars: []string{"NUMS"},
			Value:   def.Size,
		},
		&cli.BoolFlag{
			Name:    flagSimulateDelay,
			Usage:   "sleep before every retrieval to model a slow source",
			EnvVars: []string{"SIMULATE_DELAY"},
			Value:   def.SimulateDelay,
		},
		&cli.DurationFlag{
			Name:    flagDelay,
			Usage:   "length of the simulated retrieval latency",
			EnvVars: []string{"DELAY_TIME"},
			Value:   def.Delay,
		},
		&cli.BoolFlag{
			Name:    flagPrintThreads,
			Usage:   "log the goroutine and worker of every retrieval",
			EnvVars: []string{"PRINT_THREADS"},
		},
		&cli.BoolFlag{
			Name:    flagPrintResult,
			Usage:   "print every produced collection",
			EnvVars: []string{"PRINT_RESULT"},
		},
		&cli.BoolFlag{
			Name:    flagRandom,
			Usage:   "collect random values instead of counter values",
			EnvVars: []string{"NEED_RANDOM"},
		},
		&cli.IntFlag{
			Name:    flagWorkers,
			Aliases: []string{"w"},
			Usage:   "thread pool and worker pool size",
			EnvVars: []string{"WORKERS"},
			Value:   def.Workers,
		},
		&cli.StringFlag{
			Name:    flagLogLevel,
			Usage:   "debug, info, warn or error",
			EnvVars: []string{"LOG_LEVEL"},
			Value:   def.LogLevel,
		},
		&cli.BoolFlag{
			Name:    flagMetrics,
			Usage:   "print the collected Prometheus metrics after the run",
			EnvVars: []string{"PRINT_METRICS"},
		},
		&cli.BoolFlag{
			Name:    flagLogPhases,
			Usage:   "print start and stop markers around every measured run",
			EnvVars: []string{"LOG_PHASES"},
			Value:   def.LogPhases,
		},
	}
}

// FromCLI builds and validates a Config from parsed flags.
func FromCLI(c *cli.Context) (Config, error) {
	cfg := Config{
		Size:          c.Int(flagSize),
		SimulateDelay: c.Bool(flagSimulateDelay),
		Delay:         c.Duration(flagDelay),
		PrintThreads:  c.Bool(flagPrintThreads),
		PrintResult:   c.Bool(flagPrintResult),
		Random:        c.Bool(flagRandom),
		Workers:       c.Int(flagWorkers),
		LogLevel:      c.String(flagLogLevel),
		Metrics:       c.Bool(flagMetrics),
		LogPhases:     c.Bool(flagLogPhases),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
