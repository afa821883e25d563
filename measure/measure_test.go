package measure_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/asyncbench/measure"
)

type observedRun struct {
	label   string
	elapsed time.Duration
	err     error
}

type recorderStub struct {
	runs []observedRun
}

func (r *recorderStub) ObserveRun(label string, elapsed time.Duration, err error) {
	r.runs = append(r.runs, observedRun{label: label, elapsed: elapsed, err: err})
}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

// TestTime_Report verifies the printed lines
// Given: A meter with a fixed clock and logPhases enabled
// When: Time runs a piece of work
// Then: Start, stop and timing lines are printed and the result is passed through
func TestTime_Report(t *testing.T) {
	var out bytes.Buffer
	rec := &recorderStub{}
	meter := measure.NewMeter(true, 80_000,
		measure.WithWriter(&out),
		measure.WithRecorder(rec),
		measure.WithClock(steppingClock(1500*time.Millisecond)),
	)

	result, err := measure.Time(meter, "Main_Sync_Serial", true, func() ([]int, error) {
		return []int{1, 2, 3}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, result)

	want := "🟢 Starting execute [Main_Sync_Serial].\n" +
		"🔴 Stoped execute [Main_Sync_Serial].\n" +
		fmt.Sprintf("⚪️ 🏷️ %-70s ⏱️  1.5000s. ⏸️  true 🧩 80,000\n", "Main_Sync_Serial")
	assert.Equal(t, want, out.String())

	require.Len(t, rec.runs, 1)
	assert.Equal(t, "Main_Sync_Serial", rec.runs[0].label)
	assert.Equal(t, 1500*time.Millisecond, rec.runs[0].elapsed)
}

// TestTime_WithoutPhases verifies only the timing line is printed
func TestTime_WithoutPhases(t *testing.T) {
	var out bytes.Buffer
	meter := measure.NewMeter(false, 5, measure.WithWriter(&out))

	_, err := measure.Time(meter, "x", false, func() (int, error) { return 1, nil })

	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Starting")
	assert.Contains(t, out.String(), "⏸️ false 🧩 5\n")
}

// TestTime_Error verifies failures are still reported
func TestTime_Error(t *testing.T) {
	var out bytes.Buffer
	rec := &recorderStub{}
	meter := measure.NewMeter(false, 1, measure.WithWriter(&out), measure.WithRecorder(rec))
	errRun := errors.New("run failed")

	_, err := measure.Time(meter, "x", false, func() (int, error) { return 0, errRun })

	assert.ErrorIs(t, err, errRun)
	assert.Contains(t, out.String(), "⏱️")
	require.Len(t, rec.runs, 1)
	assert.ErrorIs(t, rec.runs[0].err, errRun)
}

// TestFormatCount verifies thousands grouping
func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", measure.FormatCount(0))
	assert.Equal(t, "999", measure.FormatCount(999))
	assert.Equal(t, "80,000", measure.FormatCount(80_000))
	assert.Equal(t, "1,234,567", measure.FormatCount(1_234_567))
}
