package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/openland/landauction/engineapi"
)

// Publisher delivers outbound events to fee and contract collaborators.
// It is never called while an auction's turn is held.
type Publisher interface {
	Publish(ctx context.Context, ev engineapi.Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev engineapi.Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev engineapi.Event) error {
	return f(ctx, ev)
}

// outbox queues events produced inside auction turns until they are published.
type outbox struct {
	mu      sync.Mutex
	pending []engineapi.Event

	publishMu sync.Mutex // one flush at a time keeps delivery in queue order
}

func (b *outbox) add(events ...engineapi.Event) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	b.pending = append(b.pending, events...)
	b.mu.Unlock()
}

func (b *outbox) take() []engineapi.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.pending
	b.pending = nil
	return events
}

// requeue puts undelivered events back ahead of anything queued since take.
func (b *outbox) requeue(events []engineapi.Event) {
	b.mu.Lock()
	b.pending = append(append([]engineapi.Event(nil), events...), b.pending...)
	b.mu.Unlock()
}

func (b *outbox) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// FlushEvents publishes queued events in order. On the first failure the remaining
// events stay queued for the next flush and the error is returned.
func (e *Engine) FlushEvents(ctx context.Context) error {
	e.outbox.publishMu.Lock()
	defer e.outbox.publishMu.Unlock()

	events := e.outbox.take()
	if e.cfg.Publisher == nil {
		return nil
	}

	for i, ev := range events {
		if err := e.cfg.Publisher.Publish(ctx, ev); err != nil {
			e.outbox.requeue(events[i:])
			log.Printf("WARNING: Failed to publish %s for auction %s: %v (%d events queued for retry)",
				ev.Type, ev.AuctionID, err, len(events)-i)
			return fmt.Errorf("publish %s: %w", ev.Type, err)
		}
	}
	return nil
}

// PendingEvents returns the number of events waiting to be published.
func (e *Engine) PendingEvents() int {
	return e.outbox.size()
}

func newID() string {
	return uuid.NewString()
}
