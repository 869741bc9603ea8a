package engine

import (
	"context"
	"sync"
	"time"
)

// RunCycle processes every configured instrument once. With a concurrency
// of one the instruments run in order with the instrument delay between
// them; otherwise up to that many run at a time.
func (e *Engine) RunCycle(ctx context.Context) []Outcome {
	instruments := e.cfg.Instruments
	outcomes := make([]Outcome, len(instruments))

	if e.cfg.Schedule.Concurrency <= 1 {
		for i, instrument := range instruments {
			if i > 0 {
				if err := WaitForContext(ctx, e.cfg.Schedule.InstrumentDelay); err != nil {
					return outcomes[:i]
				}
			}
			outcomes[i] = e.ProcessInstrument(ctx, instrument)
		}
		return outcomes
	}

	sem := make(chan struct{}, e.cfg.Schedule.Concurrency)
	var wg sync.WaitGroup
	for i, instrument := range instruments {
		wg.Add(1)
		go func(i int, instrument string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = e.ProcessInstrument(ctx, instrument)
		}(i, instrument)
	}
	wg.Wait()
	return outcomes
}

// Run repeats the cycle until ctx is cancelled, reconciling trailing
// anchors against the venue and waiting the cycle delay between cycles.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().Str("run_id", e.runID).Strs("instruments", e.cfg.Instruments).
		Str("mode", string(e.cfg.Mode)).Msg("engine started")
	for cycle := 1; ; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		started := time.Now()
		outcomes := e.RunCycle(ctx)
		e.metrics.CycleDone()
		e.log.Debug().Int("cycle", cycle).Int("instruments", len(outcomes)).
			Dur("elapsed", time.Since(started)).Msg("cycle complete")

		e.Reconcile(ctx)
		if err := WaitForContext(ctx, e.cfg.Schedule.CycleDelay); err != nil {
			return err
		}
	}
}

// WaitForContext sleeps for delay or until ctx is done.
func WaitForContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
