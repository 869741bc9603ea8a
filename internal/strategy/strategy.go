package strategy

import "crossbot/internal/indicator"

type Signal string

const (
	None Signal = "NONE"
	Buy  Signal = "BUY"
	Sell Signal = "SELL"
)

// Actionable reports whether the signal asks for an order.
func (s Signal) Actionable() bool {
	return s == Buy || s == Sell
}

type Intent struct {
	Signal Signal
	Reason string
}

type Strategy interface {
	Decide(snapshot indicator.Snapshot) Intent
}
