package risk

import (
	"crossbot/internal/strategy"

	"github.com/rs/zerolog"
)

// Limits caps the signed position of one instrument. MaxShort is negative.
type Limits struct {
	MaxLong  int64 `yaml:"max_long"`
	MaxShort int64 `yaml:"max_short"`
}

// Permits reports whether an order for signal may be placed at the current
// position. Both bounds are strict and NONE is never actionable.
func Permits(signal strategy.Signal, position int64, limits Limits) bool {
	switch signal {
	case strategy.Buy:
		return position < limits.MaxLong
	case strategy.Sell:
		return position > limits.MaxShort
	default:
		return false
	}
}

type Verdict struct {
	Permitted bool
	Reason    string
}

// Gate is Permits with a reason code and a log line for each rejection.
type Gate struct {
	log zerolog.Logger
}

func NewGate(log zerolog.Logger) Gate {
	return Gate{log: log}
}

func (g Gate) Evaluate(instrument string, signal strategy.Signal, position int64, limits Limits) Verdict {
	if !signal.Actionable() {
		return Verdict{Reason: "no_signal"}
	}

	g.log.Debug().Str("instrument", instrument).Str("signal", string(signal)).Int64("position", position).
		Int64("max_long", limits.MaxLong).Int64("max_short", limits.MaxShort).Msg("risk evaluation")

	if Permits(signal, position, limits) {
		return Verdict{Permitted: true, Reason: "approved"}
	}

	reason := "max_long_position_reached"
	if signal == strategy.Sell {
		reason = "max_short_position_reached"
	}
	g.log.Info().Str("instrument", instrument).Str("reason", reason).Int64("position", position).Msg("risk rejected")
	return Verdict{Reason: reason}
}
