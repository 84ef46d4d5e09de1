package sink

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
)

var _ contract.EventSink = MetricsSink{}

// MetricsSink counts every envelope once, regardless of how many connections it reached.
type MetricsSink struct {
	metrics *observability.Metrics
}

func NewMetricsSink(metrics *observability.Metrics) MetricsSink {
	return MetricsSink{metrics: metrics}
}

func (s MetricsSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.metrics.EventsPublished.WithLabelValues(string(e.EventName())).Inc()
	if reply, ok := e.(event.NicknameResponse); ok {
		s.metrics.Claims.WithLabelValues(claimResult(reply.Success)).Inc()
	}
	return nil
}

func claimResult(success bool) string {
	if success {
		return "accepted"
	}
	return "rejected"
}
