// Package journal records one Decision per instrument per cycle: what the
// indicators said, what the trailing stop did, and which orders went out.
package journal

import (
	"context"
	"errors"
	"time"
)

type Order struct {
	Purpose       string `json:"purpose"`
	ClientOrderID string `json:"client_order_id,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	Side          string `json:"side"`
	Quantity      int64  `json:"quantity"`
	LimitPrice    string `json:"limit_price"`
	Error         string `json:"error,omitempty"`
}

type Decision struct {
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
	Instrument    string    `json:"instrument"`
	Bars          int       `json:"bars"`
	ShortMA       *float64  `json:"short_ma"`
	LongMA        *float64  `json:"long_ma"`
	TrendStrength *float64  `json:"trend_strength"`
	Bid           string    `json:"bid,omitempty"`
	Ask           string    `json:"ask,omitempty"`
	Position      int64     `json:"position"`
	TrailState    string    `json:"trail_state,omitempty"`
	Anchor        string    `json:"anchor,omitempty"`
	StopLevel     string    `json:"stop_level,omitempty"`
	Flatten       string    `json:"flatten,omitempty"`
	Signal        string    `json:"signal,omitempty"`
	Result        string    `json:"result"`
	Reason        string    `json:"reason,omitempty"`
	Orders        []Order   `json:"orders,omitempty"`
}

type Sink interface {
	Append(ctx context.Context, decision Decision) error
	Close() error
}

// Multi writes every decision to each sink and joins their errors.
type Multi []Sink

func (m Multi) Append(ctx context.Context, decision Decision) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Append(ctx, decision); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Discard struct{}

func (Discard) Append(context.Context, Decision) error { return nil }
func (Discard) Close() error                           { return nil }
