package indicator

import "crossbot/internal/md"

// Snapshot holds the indicators at the most recent bar of a series.
type Snapshot struct {
	ShortMA       Value
	LongMA        Value
	TrendStrength Value
}

// Calculator computes a Snapshot from bar history. ShortWindow is expected
// to be below LongWindow but nothing here depends on it.
type Calculator struct {
	ShortWindow int
	LongWindow  int
	TrendPeriod int
}

func (c Calculator) Compute(series md.Series) Snapshot {
	closes := series.Closes()
	return Snapshot{
		ShortMA:       SMA(closes, c.ShortWindow),
		LongMA:        SMA(closes, c.LongWindow),
		TrendStrength: ADX(series, c.TrendPeriod),
	}
}

// Lookback is the number of bars needed for every indicator to be defined.
func (c Calculator) Lookback() int {
	return max(c.ShortWindow, c.LongWindow, 2*c.TrendPeriod)
}
