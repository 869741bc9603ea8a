// Package indicator computes moving averages and trend strength from bar
// history. Every result is a Value so that "not enough history" is a state
// callers must handle rather than a NaN they might compare against.
package indicator

import "fmt"

type Value struct {
	v  float64
	ok bool
}

func Defined(v float64) Value {
	return Value{v: v, ok: true}
}

func (v Value) Defined() bool {
	return v.ok
}

func (v Value) Float() (float64, bool) {
	return v.v, v.ok
}

// Ptr returns nil for an undefined value, which encodes as JSON null.
func (v Value) Ptr() *float64 {
	if !v.ok {
		return nil
	}
	f := v.v
	return &f
}

func (v Value) String() string {
	if !v.ok {
		return "na"
	}
	return fmt.Sprintf("%.4f", v.v)
}
