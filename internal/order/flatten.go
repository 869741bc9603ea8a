package order

import (
	"crossbot/internal/md"

	"github.com/shopspring/decimal"
)

// Flattener closes a position with limit orders one tick through the touch.
// Positions larger than the venue ceiling are split into legs of
// Ceiling-Margin until the rest fits in one order, so the legs always add up
// to the position.
type Flattener struct {
	Tick           decimal.Decimal
	Ceiling        int64
	Margin         int64
	PricePrecision int32
}

// Plan returns no orders for a flat position and md.ErrNoData when either
// side of the book is missing; the caller retries next cycle.
func (f Flattener) Plan(instrument string, position int64, quote md.Quote) ([]Request, error) {
	if position == 0 {
		return nil, nil
	}
	if !quote.Valid() {
		return nil, md.ErrNoData
	}

	side := Sell
	price := quote.Bid.Sub(f.Tick)
	remaining := position
	if position < 0 {
		side = Buy
		price = quote.Ask.Add(f.Tick)
		remaining = -position
	}
	price = price.Round(f.PricePrecision)

	var legs []int64
	if f.Ceiling > 0 {
		leg := f.Ceiling - f.Margin
		if leg <= 0 {
			leg = f.Ceiling
		}
		for remaining > f.Ceiling {
			legs = append(legs, leg)
			remaining -= leg
		}
	}
	legs = append(legs, remaining)

	orders := make([]Request, 0, len(legs))
	for _, qty := range legs {
		orders = append(orders, Request{
			Instrument: instrument,
			Side:       side,
			LimitPrice: price,
			Quantity:   qty,
		})
	}
	return orders, nil
}
