package ws

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"log/slog"
	"sync"
)

var _ contract.EventSink = (*ConnectionSink)(nil)

// ConnectionSink queues encoded frames for one connection's write loop.
type ConnectionSink struct {
	id        domain.ConnectionID
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	metrics   *observability.Metrics
	log       *slog.Logger
}

func NewConnectionSink(id domain.ConnectionID, bufferSize int,
	metrics *observability.Metrics, log *slog.Logger) *ConnectionSink {
	return &ConnectionSink{
		id:      id,
		send:    make(chan []byte, bufferSize),
		done:    make(chan struct{}),
		metrics: metrics,
		log:     log,
	}
}

// Consume is called by fanout
// Redirect the event through the write loop of the connection
// A full buffer drops the event rather than stall every other connection
func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.done:
		return errors.ErrUnknownConnection
	default:
	}

	frame, err := EncodeFrame(string(e.EventName()), e)
	if err != nil {
		return err
	}

	select {
	case s.send <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.metrics.EventsDropped.WithLabelValues("connection_buffer_full").Inc()
		s.log.Warn("Connection buffer full, dropping event",
			"connection_id", s.id, "event", e.EventName())
		return errors.ErrSinkFull
	}
}

// Close stops the write loop. The send channel is never closed, so a late Consume cannot panic.
func (s *ConnectionSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
