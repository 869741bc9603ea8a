package strategy

import "crossbot/internal/indicator"

// DefaultTrendThreshold is the ADX level below which crossovers are ignored.
const DefaultTrendThreshold = 30.0

// Generate maps a moving-average crossover to a signal. Trend strength only
// vetoes: a defined value below threshold forces NONE, an undefined one is
// ignored.
func Generate(shortMA, longMA, trendStrength indicator.Value, threshold float64) Signal {
	return decide(shortMA, longMA, trendStrength, threshold).Signal
}

// Crossover is the golden/death cross strategy with an ADX veto.
type Crossover struct {
	TrendThreshold float64
}

func NewCrossover(threshold float64) Crossover {
	return Crossover{TrendThreshold: threshold}
}

func (c Crossover) Decide(snapshot indicator.Snapshot) Intent {
	return decide(snapshot.ShortMA, snapshot.LongMA, snapshot.TrendStrength, c.TrendThreshold)
}

func decide(shortMA, longMA, trendStrength indicator.Value, threshold float64) Intent {
	short, okShort := shortMA.Float()
	long, okLong := longMA.Float()
	if !okShort || !okLong {
		return Intent{Signal: None, Reason: "insufficient_history"}
	}

	var intent Intent
	switch {
	case short > long:
		intent = Intent{Signal: Buy, Reason: "golden_cross"}
	case short < long:
		intent = Intent{Signal: Sell, Reason: "death_cross"}
	default:
		return Intent{Signal: None, Reason: "ma_equal"}
	}

	if trend, ok := trendStrength.Float(); ok && trend < threshold {
		return Intent{Signal: None, Reason: "trend_too_weak"}
	}
	return intent
}
