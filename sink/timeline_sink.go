package sink

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"sync"

	"github.com/samber/lo"
)

var _ contract.EventSink = (*Timeline)(nil)

// Timeline holds a simple local timeline of every event it consumed, in order.
type Timeline struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (t *Timeline) Events() []event.DomainEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]event.DomainEvent(nil), t.events...)
}

// Named returns the recorded events with the given wire name.
func (t *Timeline) Named(name event.Name) []event.DomainEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo.Filter(t.events, func(e event.DomainEvent, _ int) bool {
		return e.EventName() == name
	})
}
