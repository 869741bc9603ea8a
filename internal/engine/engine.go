// Package engine runs the per-instrument decision cycle: indicators, the
// trailing stop, the crossover signal, the risk gate, and order routing.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"crossbot/internal/config"
	"crossbot/internal/indicator"
	"crossbot/internal/journal"
	"crossbot/internal/md"
	"crossbot/internal/metrics"
	"crossbot/internal/order"
	"crossbot/internal/risk"
	"crossbot/internal/state"
	"crossbot/internal/strategy"
	"crossbot/internal/trailing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Result codes recorded for every processed instrument.
const (
	ResultNoBars              = "no_bars"
	ResultNoBook              = "no_book"
	ResultHold                = "hold"
	ResultRiskRejected        = "risk_rejected"
	ResultNonPositiveQuantity = "non_positive_quantity"
	ResultOrderBuildFailed    = "order_build_failed"
	ResultDryRun              = "dry_run"
	ResultOrderSubmitted      = "order_submitted"
	ResultOrderFailed         = "order_failed"

	FlattenSubmitted = "flatten_submitted"
	FlattenPartial   = "flatten_partial"
	FlattenFailed    = "flatten_failed"
	FlattenDryRun    = "flatten_dry_run"
)

// MarketData is the read side of a venue.
type MarketData interface {
	Bars(ctx context.Context, instrument string, lookback int) (md.Series, error)
	TopOfBook(ctx context.Context, instrument string) (md.Quote, error)
	Position(ctx context.Context, instrument string) (int64, error)
}

// OrderRouter submits limit orders and returns the venue's order id.
type OrderRouter interface {
	SubmitOrder(ctx context.Context, req order.Request, clientOrderID string) (string, error)
}

// Outcome summarises one instrument's pass through the cycle.
type Outcome struct {
	Instrument string
	Signal     strategy.Signal
	Result     string
	Reason     string
	Flatten    string
	Orders     []journal.Order
	Snapshot   indicator.Snapshot
}

type Engine struct {
	cfg        config.Config
	market     MarketData
	router     OrderRouter
	journal    journal.Sink
	calculator indicator.Calculator
	strategy   strategy.Strategy
	trailing   *trailing.Engine
	gate       risk.Gate
	sizer      order.Sizer
	flattener  order.Flattener
	metrics    *metrics.Metrics
	log        zerolog.Logger
	runID      string
	now        func() time.Time

	orderSeqNum uint64
}

func New(cfg config.Config, market MarketData, router OrderRouter, sink journal.Sink, anchors *state.Anchors, log zerolog.Logger, runID string) *Engine {
	if sink == nil {
		sink = journal.Discard{}
	}
	return &Engine{
		cfg:     cfg,
		market:  market,
		router:  router,
		journal: sink,
		calculator: indicator.Calculator{
			ShortWindow: cfg.Strategy.ShortWindow,
			LongWindow:  cfg.Strategy.LongWindow,
			TrendPeriod: cfg.Strategy.TrendPeriod,
		},
		strategy: strategy.NewCrossover(cfg.Strategy.TrendThreshold),
		trailing: trailing.New(decimal.NewFromFloat(cfg.Risk.TrailingPercent), anchors),
		gate:     risk.NewGate(log),
		sizer: order.Sizer{
			SpreadOffset:   decimal.NewFromFloat(cfg.Orders.SpreadOffset),
			BaseSize:       decimal.NewFromInt(cfg.Orders.BaseSize),
			Ceiling:        cfg.OrderCeiling(),
			PricePrecision: cfg.Orders.PricePrecision,
		},
		flattener: order.Flattener{
			Tick:           decimal.NewFromFloat(cfg.Orders.Tick),
			Ceiling:        cfg.OrderCeiling(),
			Margin:         cfg.Orders.FlattenMargin,
			PricePrecision: cfg.Orders.PricePrecision,
		},
		log:   log,
		runID: runID,
		now:   time.Now,
	}
}

// WithMetrics records decisions, orders and flattens on m.
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	return e
}

// ProcessInstrument runs one instrument through the cycle. Venue failures
// end the instrument's turn with a result code; nothing here is fatal.
func (e *Engine) ProcessInstrument(ctx context.Context, instrument string) Outcome {
	rec := journal.Decision{
		RunID:      e.runID,
		Timestamp:  e.now().UTC(),
		Instrument: instrument,
	}
	out := e.process(ctx, instrument, &rec)

	rec.Signal = string(out.Signal)
	rec.Result = out.Result
	rec.Reason = out.Reason
	rec.Flatten = out.Flatten
	rec.Orders = out.Orders
	e.metrics.Decision(instrument, out.Result)
	if out.Flatten != "" {
		e.metrics.Flatten(instrument, out.Flatten)
	}
	if err := e.journal.Append(ctx, rec); err != nil {
		e.log.Error().Err(err).Str("instrument", instrument).Msg("journal append failed")
	}

	e.log.Info().
		Str("instrument", instrument).
		Int("bars", rec.Bars).
		Stringer("short_ma", out.Snapshot.ShortMA).
		Stringer("long_ma", out.Snapshot.LongMA).
		Stringer("trend", out.Snapshot.TrendStrength).
		Int64("position", rec.Position).
		Str("signal", rec.Signal).
		Str("result", out.Result).
		Str("reason", out.Reason).
		Msg("decision")
	return out
}

func (e *Engine) process(ctx context.Context, instrument string, rec *journal.Decision) Outcome {
	out := Outcome{Instrument: instrument, Signal: strategy.None}

	series, err := e.market.Bars(ctx, instrument, e.cfg.Strategy.Lookback)
	if err != nil && !errors.Is(err, md.ErrNoData) {
		e.log.Warn().Err(err).Str("instrument", instrument).Msg("bars unavailable")
	}
	snapshot := e.calculator.Compute(series)
	out.Snapshot = snapshot
	rec.Bars = series.Len()
	rec.ShortMA = snapshot.ShortMA.Ptr()
	rec.LongMA = snapshot.LongMA.Ptr()
	rec.TrendStrength = snapshot.TrendStrength.Ptr()

	quote, err := e.market.TopOfBook(ctx, instrument)
	if err != nil {
		// The trail is left untouched; record where it stands.
		rec.TrailState = string(e.trailing.State(instrument))
		if anchor, ok := e.trailing.Anchor(instrument); ok {
			rec.Anchor = anchor.String()
		}
		out.Result, out.Reason = ResultNoBook, err.Error()
		return out
	}
	rec.Bid, rec.Ask = quote.Bid.String(), quote.Ask.String()

	position := e.position(ctx, instrument)
	rec.Position = position
	e.trail(ctx, instrument, position, quote, rec, &out)

	if series.Len() == 0 {
		out.Result, out.Reason = ResultNoBars, "empty bar history"
		return out
	}

	intent := e.strategy.Decide(snapshot)
	out.Signal = intent.Signal
	if !intent.Signal.Actionable() {
		out.Result, out.Reason = ResultHold, intent.Reason
		return out
	}

	// Size against a fresh book and position; the trailing stop may have
	// just sent orders.
	quote, err = e.market.TopOfBook(ctx, instrument)
	if err != nil {
		out.Result, out.Reason = ResultNoBook, err.Error()
		return out
	}
	rec.Bid, rec.Ask = quote.Bid.String(), quote.Ask.String()
	position = e.position(ctx, instrument)
	rec.Position = position

	verdict := e.gate.Evaluate(instrument, intent.Signal, position, e.cfg.LimitsFor(instrument))
	if !verdict.Permitted {
		out.Result, out.Reason = ResultRiskRejected, verdict.Reason
		return out
	}

	short, _ := snapshot.ShortMA.Float()
	long, _ := snapshot.LongMA.Float()
	req, err := e.sizer.Size(instrument, intent.Signal, short, long, quote)
	switch {
	case errors.Is(err, order.ErrNonPositiveQuantity):
		out.Result, out.Reason = ResultNonPositiveQuantity, intent.Reason
		return out
	case err != nil:
		out.Result, out.Reason = ResultOrderBuildFailed, err.Error()
		return out
	}

	if e.cfg.Mode == config.ModeDryRun {
		out.Orders = append(out.Orders, journalOrder("entry", "", req))
		out.Result, out.Reason = ResultDryRun, intent.Reason
		return out
	}

	placed, err := e.submit(ctx, "entry", req)
	out.Orders = append(out.Orders, placed)
	if err != nil {
		out.Result, out.Reason = ResultOrderFailed, err.Error()
		return out
	}
	out.Result, out.Reason = ResultOrderSubmitted, intent.Reason
	return out
}

// trail advances the trailing stop on the mid price and, when it fires,
// sends the flatten orders. Only a flatten with no accepted leg reinstates
// the anchor so the stop fires again next cycle.
func (e *Engine) trail(ctx context.Context, instrument string, position int64, quote md.Quote, rec *journal.Decision, out *Outcome) {
	decision := e.trailing.Update(instrument, position, quote.Mid())
	rec.TrailState = string(decision.State)
	if !decision.Anchor.IsZero() {
		rec.Anchor = decision.Anchor.String()
		rec.StopLevel = decision.StopLevel.String()
	}
	if !decision.Flatten {
		return
	}

	e.log.Warn().Str("instrument", instrument).Int64("position", position).
		Str("price", quote.Mid().String()).Str("stop_level", decision.StopLevel.String()).Msg("trailing stop hit")

	legs, err := e.flattener.Plan(instrument, position, quote)
	if err != nil {
		e.trailing.Reinstate(instrument, decision.Released)
		out.Flatten = FlattenFailed
		e.log.Error().Err(err).Str("instrument", instrument).Msg("flatten plan failed")
		return
	}

	if e.cfg.Mode == config.ModeDryRun {
		for _, leg := range legs {
			out.Orders = append(out.Orders, journalOrder("flatten", "", leg))
		}
		out.Flatten = FlattenDryRun
		return
	}

	var accepted int
	for _, leg := range legs {
		placed, err := e.submit(ctx, "flatten", leg)
		out.Orders = append(out.Orders, placed)
		if err == nil {
			accepted++
		}
	}
	switch {
	case accepted == 0:
		e.trailing.Reinstate(instrument, decision.Released)
		out.Flatten = FlattenFailed
	case accepted < len(legs):
		// Accepted legs may rest unfilled while the venue still reports the
		// full position, so a retry next cycle would over-close.
		out.Flatten = FlattenPartial
		e.log.Error().Str("instrument", instrument).Int("accepted", accepted).Int("legs", len(legs)).
			Msg("flatten partially submitted")
	default:
		out.Flatten = FlattenSubmitted
	}
}

// position defaults to flat when the venue cannot be asked.
func (e *Engine) position(ctx context.Context, instrument string) int64 {
	position, err := e.market.Position(ctx, instrument)
	if err != nil {
		e.log.Warn().Err(err).Str("instrument", instrument).Msg("position unavailable, assuming flat")
		return 0
	}
	return position
}

func (e *Engine) submit(ctx context.Context, purpose string, req order.Request) (journal.Order, error) {
	clientOrderID := e.nextClientOrderID()
	rec := journalOrder(purpose, clientOrderID, req)

	orderID, err := e.router.SubmitOrder(ctx, req, clientOrderID)
	if err != nil {
		e.metrics.Order(req.Instrument, purpose, string(req.Side), "rejected")
		rec.Error = err.Error()
		e.log.Error().Err(err).Str("instrument", req.Instrument).Str("purpose", purpose).
			Str("order", req.String()).Msg("order failed")
		return rec, fmt.Errorf("submit %s order: %w", purpose, err)
	}

	rec.OrderID = orderID
	e.metrics.Order(req.Instrument, purpose, string(req.Side), "accepted")
	e.log.Info().Str("instrument", req.Instrument).Str("purpose", purpose).Str("order", req.String()).
		Str("order_id", orderID).Str("client_order_id", clientOrderID).Msg("order submitted")
	return rec, nil
}

func (e *Engine) nextClientOrderID() string {
	seq := atomic.AddUint64(&e.orderSeqNum, 1)
	return fmt.Sprintf("%s-%d", e.runID, seq)
}

func journalOrder(purpose, clientOrderID string, req order.Request) journal.Order {
	return journal.Order{
		Purpose:       purpose,
		ClientOrderID: clientOrderID,
		Side:          string(req.Side),
		Quantity:      req.Quantity,
		LimitPrice:    req.LimitPrice.String(),
	}
}
