package engine

import (
	"context"

	"crossbot/internal/state"
)

// Reconcile drops trailing anchors for instruments the venue now reports
// flat or on the other side, e.g. after a flatten filled or a manual close.
// Instruments skipped for a missing book would otherwise keep a stale
// anchor until their next full pass.
func (e *Engine) Reconcile(ctx context.Context) {
	for instrument, anchor := range e.trailing.Anchors().Snapshot() {
		if ctx.Err() != nil {
			return
		}
		position, err := e.market.Position(ctx, instrument)
		if err != nil {
			e.log.Warn().Err(err).Str("instrument", instrument).Msg("reconcile position failed")
			continue
		}
		if state.SideOf(position) == anchor.Side {
			continue
		}
		e.trailing.Release(instrument, anchor)
		e.log.Info().Str("instrument", instrument).Int64("position", position).
			Str("side", anchor.Side.String()).Msg("reconcile released stale anchor")
	}
}
