package md

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeriesSortsByTime(t *testing.T) {
	base := time.Date(2025, 1, 21, 9, 30, 0, 0, time.UTC)
	series := NewSeries([]Bar{
		{Time: base.Add(2 * time.Minute), Close: 3},
		{Time: base, Close: 1},
		{Time: base.Add(time.Minute), Close: 2},
	})

	assert.Equal(t, []float64{1, 2, 3}, series.Closes())
	assert.Equal(t, 3, series.Len())
}

func TestQuoteMidAndValidity(t *testing.T) {
	quote := Quote{Bid: decimal.RequireFromString("9.98"), Ask: decimal.RequireFromString("10.02")}
	require.True(t, quote.Valid())
	assert.True(t, quote.Mid().Equal(decimal.NewFromInt(10)))

	assert.False(t, Quote{Bid: decimal.RequireFromString("9.98")}.Valid())
}
