package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/openland/landauction/core"
)

// Tick applies due transitions (open, close, settle, overdue notice) to every auction
// that still has one ahead of it, then publishes the resulting events.
func (e *Engine) Tick(ctx context.Context) error {
	for _, st := range e.snapshot() {
		if st.idle.Load() {
			continue
		}
		if err := e.inSlot(ctx, st, nil); err != nil {
			if ReasonOf(err) == core.ReasonUnknownAuction {
				continue // deleted while waiting
			}
			return err
		}
	}
	return e.FlushEvents(ctx)
}

// Run calls Tick every interval until ctx ends.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("INFO: Scheduler started (interval %s)", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("INFO: Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("WARNING: Scheduler tick failed: %v", err)
			}
		}
	}
}
