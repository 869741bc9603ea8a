package order

import (
	"testing"

	"crossbot/internal/md"
	"crossbot/internal/strategy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var book = md.Quote{Bid: d("10.00"), Ask: d("10.04")}

func newSizer() Sizer {
	return Sizer{SpreadOffset: d("0.02"), BaseSize: decimal.NewFromInt(2500), Ceiling: 5000, PricePrecision: 2}
}

func TestSizerBuy(t *testing.T) {
	req, err := newSizer().Size("OWL", strategy.Buy, 50.3, 50.0, book)
	require.NoError(t, err)

	assert.Equal(t, Buy, req.Side)
	assert.Equal(t, int64(1750), req.Quantity)
	assert.True(t, req.LimitPrice.Equal(d("9.98")), req.LimitPrice.String())
	assert.Equal(t, "OWL", req.Instrument)
}

func TestSizerSell(t *testing.T) {
	req, err := newSizer().Size("CROW", strategy.Sell, 49.8, 50.0, book)
	require.NoError(t, err)

	assert.Equal(t, Sell, req.Side)
	assert.Equal(t, int64(3000), req.Quantity)
	assert.True(t, req.LimitPrice.Equal(d("10.06")), req.LimitPrice.String())
}

func TestSizerRoundsFloatNoise(t *testing.T) {
	req, err := newSizer().Size("OWL", strategy.Buy, 50.300000000000004, 50.0, book)
	require.NoError(t, err)
	assert.Equal(t, int64(1750), req.Quantity)
}

func TestSizerRejectsNonPositiveQuantity(t *testing.T) {
	for _, short := range []float64{51, 52.5} {
		_, err := newSizer().Size("OWL", strategy.Buy, short, 50.0, book)
		assert.ErrorIs(t, err, ErrNonPositiveQuantity, "short=%v", short)
	}
}

func TestSizerClampsToCeiling(t *testing.T) {
	req, err := newSizer().Size("OWL", strategy.Sell, 40, 50, book)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), req.Quantity)
}

func TestSizerRequiresActionableSignalAndBook(t *testing.T) {
	_, err := newSizer().Size("OWL", strategy.None, 50.3, 50, book)
	assert.ErrorIs(t, err, ErrNotActionable)

	_, err = newSizer().Size("OWL", strategy.Buy, 50.3, 50, md.Quote{Bid: d("10")})
	assert.ErrorIs(t, err, md.ErrNoData)
}

func newFlattener() Flattener {
	return Flattener{Tick: d("0.01"), Ceiling: 5000, Margin: 500, PricePrecision: 2}
}

func totalQuantity(orders []Request) int64 {
	var total int64
	for _, o := range orders {
		total += o.Quantity
	}
	return total
}

func TestFlattenLongSellsThroughBid(t *testing.T) {
	orders, err := newFlattener().Plan("OWL", 1200, book)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	assert.Equal(t, Sell, orders[0].Side)
	assert.Equal(t, int64(1200), orders[0].Quantity)
	assert.True(t, orders[0].LimitPrice.Equal(d("9.99")))
}

func TestFlattenShortBuysThroughAsk(t *testing.T) {
	orders, err := newFlattener().Plan("OWL", -300, book)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	assert.Equal(t, Buy, orders[0].Side)
	assert.Equal(t, int64(300), orders[0].Quantity)
	assert.True(t, orders[0].LimitPrice.Equal(d("10.05")))
}

func TestFlattenSplitsAboveCeiling(t *testing.T) {
	tests := []struct {
		position int64
		legs     []int64
	}{
		{position: 5000, legs: []int64{5000}},
		{position: 7000, legs: []int64{4500, 2500}},
		{position: -9600, legs: []int64{4500, 4500, 600}},
		{position: 12000, legs: []int64{4500, 4500, 3000}},
	}
	for _, tt := range tests {
		orders, err := newFlattener().Plan("DUCK", tt.position, book)
		require.NoError(t, err)

		var got []int64
		for _, o := range orders {
			assert.LessOrEqual(t, o.Quantity, int64(5000))
			got = append(got, o.Quantity)
		}
		abs := tt.position
		if abs < 0 {
			abs = -abs
		}
		assert.Equal(t, abs, totalQuantity(orders), "position %d", tt.position)
		assert.Equal(t, tt.legs, got, "position %d", tt.position)
	}
}

func TestFlattenNoopAndNoData(t *testing.T) {
	orders, err := newFlattener().Plan("OWL", 0, book)
	require.NoError(t, err)
	assert.Empty(t, orders)

	orders, err = newFlattener().Plan("OWL", 100, md.Quote{})
	assert.ErrorIs(t, err, md.ErrNoData)
	assert.Empty(t, orders)
}
