package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*EventFanout)(nil)

// EventFanout delivers envelopes to the connections they target, plus every
// permanent sink (metrics, logs).
//
// It is the single consumer of the envelope queue, so every connection sees
// envelopes in production order. Delivery is best-effort: a sink that fails or
// times out loses that event, there is no retry.
type EventFanout struct {
	log            *slog.Logger
	envelopes      <-chan event.Envelope
	sessions       contract.ISessions
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, envelopes <-chan event.Envelope, sessions contract.ISessions,
	sinkTimeout time.Duration, permanentSinks ...contract.EventSink) *EventFanout {
	return &EventFanout{
		log:            log,
		envelopes:      envelopes,
		sessions:       sessions,
		permanentSinks: permanentSinks,
		sinkTimeout:    sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case env, ok := <-w.envelopes:
			if !ok {
				w.log.Debug("Envelope channel closed")
				return nil
			}
			w.Fanout(ctx, env)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// Fanout One sink for each targeted connection, then every permanent sink
func (w *EventFanout) Fanout(ctx context.Context, env event.Envelope) {
	for _, sink := range w.sessions.Targets(env.Audience) {
		w.deliver(ctx, sink, env.Event)
	}
	for _, sink := range w.permanentSinks {
		w.deliver(ctx, sink, env.Event)
	}
}

func (w *EventFanout) deliver(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, e); err != nil {
		w.log.Debug("Event not delivered", "event", e.EventName(), "error", err)
	}
}
