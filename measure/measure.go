// Package measure times a unit of work and prints one report line for it.
package measure

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Swind/asyncbench/core"
)

const (
	startTemplate = "🟢 Starting execute [%s].\n"
	stopTemplate  = "🔴 Stoped execute [%s].\n"
	timeTemplate  = "⚪️ 🏷️ %-70s ⏱️ %7.4fs. ⏸️ %5t 🧩 %s\n"
)

// Recorder receives the outcome of every measured run.
type Recorder interface {
	ObserveRun(label string, elapsed time.Duration, err error)
}

// Meter prints timing lines for a fixed run configuration.
type Meter struct {
	out           io.Writer
	simulateDelay bool
	size          string
	logger        core.Logger
	recorder      Recorder
	now           func() time.Time
}

// Option customizes a Meter.
type Option func(*Meter)

// WithWriter sends the report to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(m *Meter) { m.out = w }
}

// WithLogger mirrors each finished run as a debug log entry.
func WithLogger(logger core.Logger) Option {
	return func(m *Meter) { m.logger = logger }
}

// WithRecorder forwards each finished run to r.
func WithRecorder(r Recorder) Option {
	return func(m *Meter) { m.recorder = r }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Meter) { m.now = now }
}

// NewMeter creates a Meter. simulateDelay and size are only echoed in the
// report line.
func NewMeter(simulateDelay bool, size int, opts ...Option) *Meter {
	m := &Meter{
		out:           os.Stdout,
		simulateDelay: simulateDelay,
		size:          FormatCount(size),
		logger:        core.NewNoOpLogger(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Time runs work and reports how long it took. With logPhases it also prints
// start and stop markers around the work. The timing line is printed even
// when work fails.
func Time[T any](m *Meter, label string, logPhases bool, work func() (T, error)) (T, error) {
	if logPhases {
		fmt.Fprintf(m.out, startTemplate, label)
	}

	started := m.now()
	result, err := work()
	elapsed := m.now().Sub(started)

	if logPhases {
		fmt.Fprintf(m.out, stopTemplate, label)
	}
	fmt.Fprintf(m.out, timeTemplate, label, elapsed.Seconds(), m.simulateDelay, m.size)

	m.logger.Debug("measured",
		core.F("label", label),
		core.F("elapsed", elapsed),
		core.F("failed", err != nil),
	)
	if m.recorder != nil {
		m.recorder.ObserveRun(label, elapsed, err)
	}

	return result, err
}

var printer = message.NewPrinter(language.English)

// FormatCount groups digits by thousands: 80000 becomes "80,000".
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}
