package config_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/Swind/asyncbench/config"
)

// parse runs a throwaway app with the config flags and returns what FromCLI built.
func parse(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()

	var (
		cfg      config.Config
		buildErr error
	)
	app := &cli.App{
		Name:  "test",
		Flags: config.Flags(),
		Action: func(c *cli.Context) error {
			cfg, buildErr = config.FromCLI(c)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	return cfg, buildErr
}

// TestDefault_IsValid verifies the defaults
// Given: no flags
// When: Default is validated
// Then: it passes and matches the documented values
func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 80_000, cfg.Size)
	assert.True(t, cfg.SimulateDelay)
	assert.Equal(t, 10*time.Microsecond, cfg.Delay)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.True(t, cfg.LogPhases)
}

// TestValidate_Errors verifies the sentinel errors
// Given: configs with one invalid field each
// When: Validate is called
// Then: the matching sentinel is returned
func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"negative size", func(c *config.Config) { c.Size = -1 }, config.ErrInvalidSize},
		{"negative delay", func(c *config.Config) { c.Delay = -time.Second }, config.ErrInvalidDelay},
		{"no workers", func(c *config.Config) { c.Workers = 0 }, config.ErrInvalidWorkers},
		{"too many workers", func(c *config.Config) { c.Workers = config.MaxWorkers + 1 }, config.ErrInvalidWorkers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	cfg := config.Default()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())
}

// TestFromCLI_Flags verifies flag parsing
// Given: explicit flags
// When: FromCLI runs
// Then: every flag lands in its field
func TestFromCLI_Flags(t *testing.T) {
	cfg, err := parse(t,
		"--size", "5",
		"--simulate-delay=false",
		"--delay", "1ms",
		"--print-threads",
		"--print-result",
		"--random",
		"--workers", "3",
		"--log-level", "debug",
		"--metrics",
		"--log-phases=false",
	)

	require.NoError(t, err)
	assert.Equal(t, config.Config{
		Size:          5,
		SimulateDelay: false,
		Delay:         time.Millisecond,
		PrintThreads:  true,
		PrintResult:   true,
		Random:        true,
		Workers:       3,
		LogLevel:      "debug",
		Metrics:       true,
		LogPhases:     false,
	}, cfg)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)
}

// TestFromCLI_Environment verifies environment variables
// Given: NUMS and NEED_RANDOM set in the environment
// When: FromCLI runs without flags
// Then: the variables are used
func TestFromCLI_Environment(t *testing.T) {
	t.Setenv("NUMS", "12")
	t.Setenv("NEED_RANDOM", "true")

	cfg, err := parse(t)

	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Size)
	assert.True(t, cfg.Random)
}

// TestFromCLI_ZeroDelay verifies a zero delay reaches the source unchanged
// Given: --delay 0 with the delay simulation on
// When: FromCLI runs
// Then: the config is valid and the provider options carry a zero delay
func TestFromCLI_ZeroDelay(t *testing.T) {
	cfg, err := parse(t, "--delay", "0s")

	require.NoError(t, err)
	opts := cfg.ProviderOptions()
	assert.True(t, opts.SimulateDelay)
	assert.Zero(t, opts.Delay)
}

// TestFromCLI_Workers verifies the worker bounds
// Given: the largest supported worker count and one above it
// When: FromCLI runs
// Then: the first is accepted and the second fails with ErrInvalidWorkers
func TestFromCLI_Workers(t *testing.T) {
	cfg, err := parse(t, "--workers", "10000")
	require.NoError(t, err)
	assert.Equal(t, config.MaxWorkers, cfg.Workers)

	_, err = parse(t, "--workers", "20000")
	assert.ErrorIs(t, err, config.ErrInvalidWorkers)
}

// TestFromCLI_RejectsNegativeSize verifies fail-fast validation
// Given: a negative size
// When: FromCLI runs
// Then: ErrInvalidSize is returned
func TestFromCLI_RejectsNegativeSize(t *testing.T) {
	_, err := parse(t, "--size=-3")

	assert.ErrorIs(t, err, config.ErrInvalidSize)
}
