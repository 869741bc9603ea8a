package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"crossbot/internal/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.RIT.APIKey = "key"
	return cfg
}

func TestValidateAcceptsDefaultsWithCredentials(t *testing.T) {
	require.NoError(t, validate(validConfig()))
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "mode", mutate: func(c *Config) { c.Mode = "stream" }},
		{name: "venue", mutate: func(c *Config) { c.Venue = "wallex" }},
		{name: "missing rit key in live mode", mutate: func(c *Config) { c.RIT.APIKey = "" }},
		{name: "alpaca without credentials", mutate: func(c *Config) { c.Venue = VenueAlpaca }},
		{name: "no instruments", mutate: func(c *Config) { c.Instruments = nil }},
		{name: "blank instrument", mutate: func(c *Config) { c.Instruments = []string{"OWL", " "} }},
		{name: "zero window", mutate: func(c *Config) { c.Strategy.ShortWindow = 0 }},
		{name: "lookback too short", mutate: func(c *Config) { c.Strategy.Lookback = 10 }},
		{name: "base size", mutate: func(c *Config) { c.Orders.BaseSize = 0 }},
		{name: "tick", mutate: func(c *Config) { c.Orders.Tick = 0 }},
		{name: "margin above ceiling", mutate: func(c *Config) { c.Orders.FlattenMargin = 5000 }},
		{name: "inverted limits", mutate: func(c *Config) { c.Risk.MaxLongPosition = -6000 }},
		{name: "inverted override", mutate: func(c *Config) {
			c.Risk.Limits = map[string]risk.Limits{"OWL": {MaxLong: 0, MaxShort: 0}}
		}},
		{name: "trailing percent", mutate: func(c *Config) { c.Risk.TrailingPercent = 1 }},
		{name: "concurrency", mutate: func(c *Config) { c.Schedule.Concurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, validate(cfg))
		})
	}
}

func TestDryRunDoesNotNeedRITKey(t *testing.T) {
	cfg := validConfig()
	cfg.RIT.APIKey = ""
	cfg.Mode = ModeDryRun
	assert.NoError(t, validate(cfg))
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "crossbot.yaml")
	contents := `
mode: live
instruments: [OWL, CROW]
strategy:
  short_window: 5
  long_window: 10
  lookback: 50
risk:
  trailing_percent: 0.01
  limits:
    CROW: {max_long: 3000, max_short: -3000}
schedule:
  instrument_delay: 500ms
rit:
  api_key: file-key
`
	require.NoError(t, os.WriteFile(configPath, []byte(contents), 0o600))
	t.Setenv("RIT_API_KEY", "env-key")

	cfg, err := Load(configPath, Overrides{Mode: "dry-run", Instruments: []string{"DUCK"}})
	require.NoError(t, err)

	assert.Equal(t, ModeDryRun, cfg.Mode)
	assert.Equal(t, []string{"DUCK"}, cfg.Instruments)
	assert.Equal(t, "env-key", cfg.RIT.APIKey)
	assert.Equal(t, 5, cfg.Strategy.ShortWindow)
	assert.Equal(t, 10, cfg.Strategy.LongWindow)
	assert.Equal(t, 4, cfg.Strategy.TrendPeriod, "unset keys keep defaults")
	assert.Equal(t, 500*time.Millisecond, cfg.Schedule.InstrumentDelay)
	assert.Equal(t, 0.01, cfg.Risk.TrailingPercent)

	assert.Equal(t, risk.Limits{MaxLong: 3000, MaxShort: -3000}, cfg.LimitsFor("CROW"))
	assert.Equal(t, risk.Limits{MaxLong: 5000, MaxShort: -5000}, cfg.LimitsFor("OWL"))
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), Overrides{})
	assert.Error(t, err)
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "crossbot.example.yaml"), Overrides{})
	require.NoError(t, err)

	assert.Equal(t, ModeDryRun, cfg.Mode)
	assert.Equal(t, 2*time.Second, cfg.Schedule.InstrumentDelay)
	assert.Equal(t, ":9108", cfg.Metrics.Addr)
	assert.Equal(t, risk.Limits{MaxLong: 3000, MaxShort: -3000}, cfg.LimitsFor("OWL"))
}

func TestOrderCeilingIsRITOnly(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(5000), cfg.OrderCeiling())

	cfg.Venue = VenueAlpaca
	assert.Equal(t, int64(0), cfg.OrderCeiling())
}

func TestValidateLookbackCoversTrendPeriod(t *testing.T) {
	cfg := validConfig()
	cfg.Strategy.Lookback = 15
	cfg.Strategy.TrendPeriod = 8
	assert.Error(t, validate(cfg))

	cfg.Strategy.TrendPeriod = 7
	assert.NoError(t, validate(cfg))
}
