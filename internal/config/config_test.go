package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbacktest/internal/matching"
	"tickbacktest/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.Replay.Source)
	assert.Equal(t, []string{"AAPL"}, cfg.Replay.Symbols)
	assert.Equal(t, matching.DefaultAccount, cfg.Sim.Account)
	assert.True(t, cfg.Sim.InitialCash.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, matching.DefaultCloseTime, cfg.Sim.CloseTime)
	assert.True(t, cfg.Sim.PartialFills)
	assert.True(t, cfg.Report.RiskFreeRate.Equal(decimal.RequireFromString("0.02")))
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadFromEnvAndDotenv(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(dotenv, []byte("REPLAY_SYMBOLS=IBM,MSFT\nSIM_FILL_MODE=quote\n"), 0o644))

	t.Setenv("REPLAY_SOURCE", "archive")
	t.Setenv("BARS_INTERVALS", "1m,100t")
	t.Setenv("SIM_INITIAL_CASH", "2500.50")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(dotenv)
	require.NoError(t, err)
	t.Cleanup(func() {
		os.Unsetenv("REPLAY_SYMBOLS")
		os.Unsetenv("SIM_FILL_MODE")
	})

	assert.Equal(t, "archive", cfg.Replay.Source)
	assert.Equal(t, []string{"IBM", "MSFT"}, cfg.Replay.Symbols)
	assert.True(t, cfg.Sim.InitialCash.Equal(decimal.RequireFromString("2500.5")))
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)

	mode, err := cfg.Sim.Mode()
	require.NoError(t, err)
	assert.Equal(t, matching.QuoteFill, mode)

	intervals, err := cfg.Bars.ParseIntervals()
	require.NoError(t, err)
	assert.Equal(t, []types.Interval{types.SecondsInterval(60), types.TickInterval(100)}, intervals)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Replay.Source = "s3" }},
		{"no symbols", func(c *Config) { c.Replay.Symbols = nil }},
		{"dates reversed", func(c *Config) { c.Replay.StartDate, c.Replay.EndDate = 20240105, 20240101 }},
		{"zero cash", func(c *Config) { c.Sim.InitialCash = decimal.Zero }},
		{"fill mode", func(c *Config) { c.Sim.FillMode = "mid" }},
		{"commission", func(c *Config) { c.Sim.Commission = "flat" }},
		{"interval", func(c *Config) { c.Bars.Intervals = []string{"soon"} }},
		{"lookback", func(c *Config) { c.Strategy.Lookback = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSimOptions(t *testing.T) {
	cfg := SimConfig{FillMode: "trade", Commission: "percent", CommissionRate: decimal.RequireFromString("0.001"), CommissionMin: decimal.NewFromInt(1)}
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 5)

	model, err := cfg.CommissionModel()
	require.NoError(t, err)
	assert.True(t, model("IBM", decimal.NewFromInt(10), 10).Equal(decimal.NewFromInt(1)))
}
