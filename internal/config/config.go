// Package config loads the bot configuration from a YAML file, the
// environment, and command-line overrides, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"crossbot/internal/indicator"
	"crossbot/internal/risk"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLive   Mode = "live"
	ModeDryRun Mode = "dry-run"
)

type Venue string

const (
	VenueRIT    Venue = "rit"
	VenueAlpaca Venue = "alpaca"
)

// Strategy holds the indicator windows and the trend veto level.
type Strategy struct {
	ShortWindow    int     `yaml:"short_window"`
	LongWindow     int     `yaml:"long_window"`
	Lookback       int     `yaml:"lookback"`
	TrendPeriod    int     `yaml:"trend_period"`
	TrendThreshold float64 `yaml:"trend_threshold"`
}

// Orders controls entry sizing and how positions are flattened.
type Orders struct {
	SpreadOffset   float64 `yaml:"spread_offset"`
	BaseSize       int64   `yaml:"base_size"`
	Tick           float64 `yaml:"tick"`
	Ceiling        int64   `yaml:"ceiling"`
	FlattenMargin  int64   `yaml:"flatten_margin"`
	PricePrecision int32   `yaml:"price_precision"`
}

// Risk holds the default position caps, per-instrument overrides, and the
// trailing stop retreat.
type Risk struct {
	MaxLongPosition  int64                  `yaml:"max_long_position"`
	MaxShortPosition int64                  `yaml:"max_short_position"`
	Limits           map[string]risk.Limits `yaml:"limits"`
	TrailingPercent  float64                `yaml:"trailing_percent"`
}

type Schedule struct {
	InstrumentDelay time.Duration `yaml:"instrument_delay"`
	CycleDelay      time.Duration `yaml:"cycle_delay"`
	Concurrency     int           `yaml:"concurrency"`
}

type Journal struct {
	Path        string `yaml:"path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Metrics serves Prometheus counters on Addr; empty disables it.
type Metrics struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RIT configures the Rotman Interactive Trader REST client.
type RIT struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type Alpaca struct {
	APIKey           string `yaml:"api_key"`
	APISecret        string `yaml:"api_secret"`
	BaseURL          string `yaml:"base_url"`
	DataBaseURL      string `yaml:"data_base_url"`
	Feed             string `yaml:"feed"`
	TimeFrameMinutes int    `yaml:"timeframe_minutes"`
}

type Config struct {
	Mode        Mode     `yaml:"mode"`
	Venue       Venue    `yaml:"venue"`
	Instruments []string `yaml:"instruments"`
	Strategy    Strategy `yaml:"strategy"`
	Orders      Orders   `yaml:"orders"`
	Risk        Risk     `yaml:"risk"`
	Schedule    Schedule `yaml:"schedule"`
	Journal     Journal  `yaml:"journal"`
	Log         Log      `yaml:"log"`
	Metrics     Metrics  `yaml:"metrics"`
	RIT         RIT      `yaml:"rit"`
	Alpaca      Alpaca   `yaml:"alpaca"`
}

// Overrides come from the command line. Zero values leave the loaded
// configuration untouched.
type Overrides struct {
	Mode        string
	Venue       string
	Instruments []string
	LogLevel    string
}

func Default() Config {
	return Config{
		Mode:        ModeLive,
		Venue:       VenueRIT,
		Instruments: []string{"OWL", "CROW", "DOVE", "DUCK"},
		Strategy: Strategy{
			ShortWindow:    6,
			LongWindow:     15,
			Lookback:       100,
			TrendPeriod:    4,
			TrendThreshold: 30,
		},
		Orders: Orders{
			SpreadOffset:   0.02,
			BaseSize:       2500,
			Tick:           0.01,
			Ceiling:        5000,
			FlattenMargin:  500,
			PricePrecision: 2,
		},
		Risk: Risk{
			MaxLongPosition:  5000,
			MaxShortPosition: -5000,
			TrailingPercent:  0.02,
		},
		Schedule: Schedule{
			InstrumentDelay: 2 * time.Second,
			CycleDelay:      10 * time.Second,
			Concurrency:     1,
		},
		Journal: Journal{Path: "decisions.ndjson"},
		Log:     Log{Level: "info", Format: "json"},
		RIT: RIT{
			BaseURL: "http://localhost:9999/v1",
			Timeout: 5 * time.Second,
		},
		Alpaca: Alpaca{
			BaseURL:          "https://paper-api.alpaca.markets",
			DataBaseURL:      "https://data.alpaca.markets",
			Feed:             "iex",
			TimeFrameMinutes: 1,
		},
	}
}

// Load starts from Default, decodes path over it when given, fills
// credentials from .env and the environment, applies overrides, and
// validates the result.
func Load(path string, overrides Overrides) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := loadDotEnvIfPresent(".env"); err != nil {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)
	applyOverrides(&cfg, overrides)

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.RIT.APIKey, "RIT_API_KEY")
	setFromEnv(&cfg.Alpaca.APIKey, "APCA_API_KEY_ID")
	setFromEnv(&cfg.Alpaca.APISecret, "APCA_API_SECRET_KEY")
	setFromEnv(&cfg.Journal.PostgresDSN, "CROSSBOT_PG_DSN")
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func applyOverrides(cfg *Config, o Overrides) {
	if o.Mode != "" {
		cfg.Mode = Mode(o.Mode)
	}
	if o.Venue != "" {
		cfg.Venue = Venue(o.Venue)
	}
	if len(o.Instruments) > 0 {
		cfg.Instruments = o.Instruments
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
}

// OrderCeiling is the largest quantity one order may carry. Only RIT caps
// order size; other venues return 0, meaning no cap.
func (c Config) OrderCeiling() int64 {
	if c.Venue != VenueRIT {
		return 0
	}
	return c.Orders.Ceiling
}

// LimitsFor returns the instrument's override or the default caps.
func (c Config) LimitsFor(instrument string) risk.Limits {
	if limits, ok := c.Risk.Limits[instrument]; ok {
		return limits
	}
	return risk.Limits{MaxLong: c.Risk.MaxLongPosition, MaxShort: c.Risk.MaxShortPosition}
}

func validate(cfg Config) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.Mode != ModeLive && cfg.Mode != ModeDryRun {
		add("invalid mode: %s", cfg.Mode)
	}
	switch cfg.Venue {
	case VenueRIT:
		if cfg.RIT.BaseURL == "" {
			add("rit.base_url is required")
		}
		if cfg.Mode == ModeLive && cfg.RIT.APIKey == "" {
			add("RIT_API_KEY is required in live mode")
		}
	case VenueAlpaca:
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			add("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required for the alpaca venue")
		}
		if cfg.Alpaca.TimeFrameMinutes <= 0 {
			add("alpaca.timeframe_minutes must be > 0")
		}
	default:
		add("invalid venue: %s", cfg.Venue)
	}

	if len(cfg.Instruments) == 0 {
		add("at least one instrument is required")
	}
	for _, instrument := range cfg.Instruments {
		if strings.TrimSpace(instrument) == "" {
			add("instrument names must not be empty")
			break
		}
	}

	s := cfg.Strategy
	if s.ShortWindow <= 0 || s.LongWindow <= 0 {
		add("short_window and long_window must be > 0")
	}
	if s.TrendPeriod <= 0 {
		add("trend_period must be > 0")
	}
	calc := indicator.Calculator{ShortWindow: s.ShortWindow, LongWindow: s.LongWindow, TrendPeriod: s.TrendPeriod}
	if s.Lookback < calc.Lookback() {
		add("lookback must cover long_window, short_window and 2*trend_period")
	}
	if s.TrendThreshold < 0 {
		add("trend_threshold must be >= 0")
	}

	o := cfg.Orders
	if o.BaseSize <= 0 {
		add("base_size must be > 0")
	}
	if o.SpreadOffset < 0 {
		add("spread_offset must be >= 0")
	}
	if o.Tick <= 0 {
		add("tick must be > 0")
	}
	if o.Ceiling < 0 || o.FlattenMargin < 0 {
		add("ceiling and flatten_margin must be >= 0")
	}
	if o.Ceiling > 0 && o.FlattenMargin >= o.Ceiling {
		add("flatten_margin must be below ceiling")
	}
	if o.PricePrecision < 0 || o.PricePrecision > 8 {
		add("price_precision must be between 0 and 8")
	}

	r := cfg.Risk
	if r.MaxLongPosition <= r.MaxShortPosition {
		add("max_long_position must be above max_short_position")
	}
	for instrument, limits := range r.Limits {
		if limits.MaxLong <= limits.MaxShort {
			add("limits for %s: max_long must be above max_short", instrument)
		}
	}
	if r.TrailingPercent <= 0 || r.TrailingPercent >= 1 {
		add("trailing_percent must be in (0, 1)")
	}

	if cfg.Schedule.InstrumentDelay < 0 || cfg.Schedule.CycleDelay < 0 {
		add("schedule delays must be >= 0")
	}
	if cfg.Schedule.Concurrency < 1 {
		add("concurrency must be >= 1")
	}

	return errors.Join(errs...)
}
