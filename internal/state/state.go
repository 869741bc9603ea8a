// Package state holds the per-instrument trailing-stop anchors, the only
// state the bot carries from one cycle to the next. Anchors live for the
// life of the process and are never written to disk.
package state

import (
	"sync"

	"github.com/shopspring/decimal"
)

type Side int8

const (
	Long  Side = 1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// SideOf returns the side of a signed position, or 0 when flat.
func SideOf(position int64) Side {
	switch {
	case position > 0:
		return Long
	case position < 0:
		return Short
	default:
		return 0
	}
}

// Anchor is the best price seen since a position was opened: the running
// high for a long, the running low for a short.
type Anchor struct {
	Side      Side
	Reference decimal.Decimal
}

type entry struct {
	mu     sync.Mutex
	anchor Anchor
	set    bool
}

// Anchors maps instrument to anchor. Each instrument has its own lock, so
// instruments can be processed in parallel without contending.
type Anchors struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewAnchors() *Anchors {
	return &Anchors{entries: map[string]*entry{}}
}

func (a *Anchors) entry(instrument string) *entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[instrument]
	if !ok {
		e = &entry{}
		a.entries[instrument] = e
	}
	return e
}

// With runs fn holding the instrument's lock. fn gets the current anchor and
// returns the one to keep; keep=false clears it.
func (a *Anchors) With(instrument string, fn func(current Anchor, ok bool) (next Anchor, keep bool)) {
	e := a.entry(instrument)
	e.mu.Lock()
	defer e.mu.Unlock()
	next, keep := fn(e.anchor, e.set)
	if !keep {
		e.anchor, e.set = Anchor{}, false
		return
	}
	e.anchor, e.set = next, true
}

func (a *Anchors) Get(instrument string) (Anchor, bool) {
	e := a.entry(instrument)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.anchor, e.set
}

// Snapshot copies every live anchor.
func (a *Anchors) Snapshot() map[string]Anchor {
	a.mu.Lock()
	entries := make(map[string]*entry, len(a.entries))
	for k, v := range a.entries {
		entries[k] = v
	}
	a.mu.Unlock()

	out := make(map[string]Anchor, len(entries))
	for instrument, e := range entries {
		e.mu.Lock()
		if e.set {
			out[instrument] = e.anchor
		}
		e.mu.Unlock()
	}
	return out
}
