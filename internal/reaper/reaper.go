// Package reaper runs the background hold-expiry sweep: on a fixed
// interval it asks the engine to release every hold whose deadline has
// passed. It is the idiomatic-Go shape of the reference implementation's
// daemon thread, which looped with a sleep and its own isolated database
// connection.
package reaper

import (
	"context"
	"log"
	"time"
)

// Expirer is the subset of engine.Engine the reaper depends on.
type Expirer interface {
	ExpireDueHolds(ctx context.Context) (int, error)
}

// Reaper periodically releases expired holds until its context is
// canceled.
type Reaper struct {
	engine   Expirer
	interval time.Duration
}

// New constructs a Reaper that ticks every interval.
func New(engine Expirer, interval time.Duration) *Reaper {
	return &Reaper{engine: engine, interval: interval}
}

// Run blocks, sweeping on every tick, until ctx is canceled. A single tick's
// error is logged and swallowed: a transient database hiccup should not
// stop future ticks from trying again.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reaper) tick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("reaper: recovered from panic: %v", rec)
		}
	}()

	count, err := r.engine.ExpireDueHolds(ctx)
	if err != nil {
		log.Printf("reaper: expire sweep failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("reaper: released %d expired hold(s)", count)
	}
}
