// crossbot trades moving-average crossovers with a trend filter and a
// trailing stop against RIT or Alpaca.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"crossbot/internal/broker"
	"crossbot/internal/config"
	"crossbot/internal/engine"
	"crossbot/internal/journal"
	"crossbot/internal/logging"
	"crossbot/internal/metrics"
	"crossbot/internal/rit"
	"crossbot/internal/state"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

type options struct {
	configPath  string
	mode        string
	venue       string
	instruments string
	logLevel    string
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "crossbot",
		Short:         "Moving-average crossover trader with a trailing stop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.mode, "mode", "", "live or dry-run")
	rootCmd.PersistentFlags().StringVar(&opts.venue, "venue", "", "rit or alpaca")
	rootCmd.PersistentFlags().StringVar(&opts.instruments, "instruments", "", "comma-separated instruments")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(onceCmd(opts))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run decision cycles until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer app.close()

			err = app.engine.Run(ctx)
			if errors.Is(err, context.Canceled) {
				app.log.Info().Msg("shutdown signal received")
				return nil
			}
			return err
		},
	}
}

func onceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single decision cycle over every instrument",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer app.close()

			for _, out := range app.engine.RunCycle(ctx) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", out.Instrument, out.Signal, out.Result, out.Reason)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crossbot version %s\n", version)
		},
	}
}

type app struct {
	engine  *engine.Engine
	journal journal.Sink
	metrics *http.Server
	log     zerolog.Logger
}

func (a *app) close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.log.Error().Err(err).Msg("failed to stop metrics server")
		}
	}
	if err := a.journal.Close(); err != nil {
		a.log.Error().Err(err).Msg("failed to close journal")
	}
	a.log.Info().Msg("bot shutdown complete")
}

func setup(ctx context.Context, opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath, config.Overrides{
		Mode:        opts.mode,
		Venue:       opts.venue,
		Instruments: splitInstruments(opts.instruments),
		LogLevel:    opts.logLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	runID := generateRunID()
	log = log.With().Str("run_id", runID).Logger()

	sink, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return nil, err
	}

	var market engine.MarketData
	var router engine.OrderRouter
	switch cfg.Venue {
	case config.VenueAlpaca:
		client := broker.New(broker.Options{
			APIKey:           cfg.Alpaca.APIKey,
			APISecret:        cfg.Alpaca.APISecret,
			BaseURL:          cfg.Alpaca.BaseURL,
			DataBaseURL:      cfg.Alpaca.DataBaseURL,
			Feed:             cfg.Alpaca.Feed,
			TimeFrameMinutes: cfg.Alpaca.TimeFrameMinutes,
		}, log.With().Str("venue", "alpaca").Logger())
		market, router = client, client
	default:
		client := rit.New(cfg.RIT.BaseURL, cfg.RIT.APIKey, cfg.RIT.Timeout, log.With().Str("venue", "rit").Logger())
		market, router = client, client
	}

	log.Info().Str("mode", string(cfg.Mode)).Str("venue", string(cfg.Venue)).
		Strs("instruments", cfg.Instruments).Msg("starting bot")

	a := &app{journal: sink, log: log}
	eng := engine.New(cfg, market, router, sink, state.NewAnchors(), log, runID)
	if cfg.Metrics.Addr != "" {
		m := metrics.New()
		eng.WithMetrics(m)
		a.metrics = m.Serve(cfg.Metrics.Addr, log)
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server listening")
	}
	a.engine = eng
	return a, nil
}

func openJournal(ctx context.Context, cfg config.Journal) (journal.Sink, error) {
	var sinks journal.Multi
	if cfg.Path != "" {
		file, err := journal.NewFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("decision journal error: %w", err)
		}
		sinks = append(sinks, file)
	}
	if cfg.PostgresDSN != "" {
		pg, err := journal.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			_ = sinks.Close()
			return nil, fmt.Errorf("postgres journal error: %w", err)
		}
		sinks = append(sinks, pg)
	}
	if len(sinks) == 0 {
		return journal.Discard{}, nil
	}
	return sinks, nil
}

func splitInstruments(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}

func generateRunID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	return timestamp + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}
