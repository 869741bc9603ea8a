// Package metrics exposes Prometheus counters for decisions, orders and
// trailing-stop flattens.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds the bot's counters on its own registry. A nil *Metrics
// records nothing.
type Metrics struct {
	Registry  *prometheus.Registry
	Cycles    prometheus.Counter
	Decisions *prometheus.CounterVec
	Orders    *prometheus.CounterVec
	Flattens  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "crossbot_cycles_total", Help: "Decision cycles completed"},
		),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "crossbot_decisions_total", Help: "Instrument decisions by result code"},
			[]string{"instrument", "result"},
		),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "crossbot_orders_total", Help: "Orders sent to the venue"},
			[]string{"instrument", "purpose", "side", "status"},
		),
		Flattens: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "crossbot_flattens_total", Help: "Trailing stop flattens by outcome"},
			[]string{"instrument", "outcome"},
		),
	}
	m.Registry.MustRegister(m.Cycles, m.Decisions, m.Orders, m.Flattens)
	return m
}

func (m *Metrics) CycleDone() {
	if m == nil {
		return
	}
	m.Cycles.Inc()
}

func (m *Metrics) Decision(instrument, result string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(instrument, result).Inc()
}

// Order counts a submission; status is "accepted" or "rejected".
func (m *Metrics) Order(instrument, purpose, side, status string) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(instrument, purpose, side, status).Inc()
}

func (m *Metrics) Flatten(instrument, outcome string) {
	if m == nil {
		return
	}
	m.Flattens.WithLabelValues(instrument, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background.
func (m *Metrics) Serve(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return srv
}
