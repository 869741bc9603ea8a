package md

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoData reports that the venue had nothing to return for an instrument:
// an empty bar history or a book with a missing side.
var ErrNoData = errors.New("market data unavailable")

type Bar struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Series is the bar history of one instrument, oldest first.
type Series []Bar

// NewSeries copies bars into a Series ordered by time. Venues are not trusted
// to return history in chronological order.
func NewSeries(bars []Bar) Series {
	series := make(Series, len(bars))
	copy(series, bars)
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})
	return series
}

func (s Series) Len() int {
	return len(s)
}

func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, bar := range s {
		closes[i] = bar.Close
	}
	return closes
}

// Quote is the top of book for one instrument. A zero price means the side
// is empty.
type Quote struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

func (q Quote) Valid() bool {
	return q.Bid.IsPositive() && q.Ask.IsPositive()
}

func (q Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2))
}
