package order

import (
	"crossbot/internal/md"
	"crossbot/internal/strategy"

	"github.com/shopspring/decimal"
)

// Sizer prices an entry order away from the touch and scales its size by
// the gap between the moving averages. The scaling is a heuristic: a wider
// gap shrinks buys and grows sells.
type Sizer struct {
	SpreadOffset   decimal.Decimal
	BaseSize       decimal.Decimal
	Ceiling        int64
	PricePrecision int32
}

func (s Sizer) Size(instrument string, signal strategy.Signal, shortMA, longMA float64, quote md.Quote) (Request, error) {
	side, err := SideFor(signal)
	if err != nil {
		return Request{}, err
	}
	if !quote.Valid() {
		return Request{}, md.ErrNoData
	}

	short := decimal.NewFromFloat(shortMA)
	long := decimal.NewFromFloat(longMA)
	one := decimal.NewFromInt(1)

	var factor, price decimal.Decimal
	if side == Buy {
		factor = one.Sub(short.Sub(long))
		price = quote.Bid.Sub(s.SpreadOffset)
	} else {
		factor = one.Add(long.Sub(short))
		price = quote.Ask.Add(s.SpreadOffset)
	}

	qty := factor.Mul(s.BaseSize).Round(0).IntPart()
	if qty <= 0 {
		return Request{}, ErrNonPositiveQuantity
	}
	if s.Ceiling > 0 && qty > s.Ceiling {
		qty = s.Ceiling
	}
	price = price.Round(s.PricePrecision)
	if !price.IsPositive() {
		return Request{}, ErrNonPositiveLimitPrice
	}

	return Request{
		Instrument: instrument,
		Side:       side,
		LimitPrice: price,
		Quantity:   qty,
	}, nil
}
