// Package trailing implements the per-instrument trailing stop.
//
// While a position is open the engine keeps an anchor at the best price seen
// since entry. The stop level is a fixed percentage retreat from the anchor,
// never from the live price, and the anchor only moves in the position's
// favour. Crossing the stop asks the caller to flatten and clears the anchor.
package trailing

import (
	"crossbot/internal/state"

	"github.com/shopspring/decimal"
)

type State string

const (
	Flat          State = "FLAT"
	TrailingLong  State = "TRAILING_LONG"
	TrailingShort State = "TRAILING_SHORT"
)

func stateOf(side state.Side) State {
	switch side {
	case state.Long:
		return TrailingLong
	case state.Short:
		return TrailingShort
	default:
		return Flat
	}
}

// Decision is the result of one Update. When Flatten is set, Released holds
// the anchor that was cleared so it can be reinstated if the flatten orders
// never reach the venue.
type Decision struct {
	State     State
	Anchor    decimal.Decimal
	StopLevel decimal.Decimal
	Flatten   bool
	Released  state.Anchor
}

type Engine struct {
	percent decimal.Decimal
	anchors *state.Anchors
}

// New builds an engine with the given retreat, e.g. 0.02 for 2%.
func New(percent decimal.Decimal, anchors *state.Anchors) *Engine {
	if anchors == nil {
		anchors = state.NewAnchors()
	}
	return &Engine{percent: percent, anchors: anchors}
}

// Update advances the instrument's state machine with the venue-reported
// position and the current price.
func (e *Engine) Update(instrument string, position int64, price decimal.Decimal) Decision {
	var decision Decision
	e.anchors.With(instrument, func(current state.Anchor, ok bool) (state.Anchor, bool) {
		side := state.SideOf(position)
		if side == 0 {
			decision = Decision{State: Flat}
			return state.Anchor{}, false
		}

		// A missing anchor or a position that flipped sides starts a new trail.
		if !ok || current.Side != side {
			current = state.Anchor{Side: side, Reference: price}
		}

		var stop decimal.Decimal
		var hit bool
		one := decimal.NewFromInt(1)
		if side == state.Long {
			if price.GreaterThan(current.Reference) {
				current.Reference = price
			}
			stop = current.Reference.Mul(one.Sub(e.percent))
			hit = price.LessThanOrEqual(stop)
		} else {
			if price.LessThan(current.Reference) {
				current.Reference = price
			}
			stop = current.Reference.Mul(one.Add(e.percent))
			hit = price.GreaterThanOrEqual(stop)
		}

		decision = Decision{
			State:     stateOf(side),
			Anchor:    current.Reference,
			StopLevel: stop,
		}
		if hit {
			decision.State = Flat
			decision.Flatten = true
			decision.Released = current
			return state.Anchor{}, false
		}
		return current, true
	})
	return decision
}

// Reinstate puts back an anchor released by a stop whose flatten could not
// be sent, so the stop is evaluated against the same extreme next cycle. An
// anchor created since then is left alone.
func (e *Engine) Reinstate(instrument string, anchor state.Anchor) {
	e.anchors.With(instrument, func(current state.Anchor, ok bool) (state.Anchor, bool) {
		if ok {
			return current, true
		}
		return anchor, anchor.Side != 0
	})
}

// Release clears the instrument's anchor if it still trails on the given
// side.
func (e *Engine) Release(instrument string, anchor state.Anchor) {
	e.anchors.With(instrument, func(current state.Anchor, ok bool) (state.Anchor, bool) {
		if !ok || current.Side != anchor.Side {
			return current, ok
		}
		return state.Anchor{}, false
	})
}

func (e *Engine) Anchors() *state.Anchors {
	return e.anchors
}

func (e *Engine) State(instrument string) State {
	anchor, ok := e.anchors.Get(instrument)
	if !ok {
		return Flat
	}
	return stateOf(anchor.Side)
}

func (e *Engine) Anchor(instrument string) (decimal.Decimal, bool) {
	anchor, ok := e.anchors.Get(instrument)
	return anchor.Reference, ok
}
