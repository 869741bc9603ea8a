// Package order turns signals and positions into limit order requests.
package order

import (
	"errors"
	"fmt"

	"crossbot/internal/strategy"

	"github.com/shopspring/decimal"
)

var (
	ErrNotActionable         = errors.New("signal is not actionable")
	ErrNonPositiveQuantity   = errors.New("computed quantity is not positive")
	ErrNonPositiveLimitPrice = errors.New("computed limit price is not positive")
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func SideFor(signal strategy.Signal) (Side, error) {
	switch signal {
	case strategy.Buy:
		return Buy, nil
	case strategy.Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrNotActionable, signal)
	}
}

// Request is a limit order. Quantity is always positive; Side carries the
// direction.
type Request struct {
	Instrument string
	Side       Side
	LimitPrice decimal.Decimal
	Quantity   int64
}

func (r Request) String() string {
	return fmt.Sprintf("%s %d %s @ %s", r.Side, r.Quantity, r.Instrument, r.LimitPrice.StringFixed(2))
}
