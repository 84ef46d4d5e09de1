// Package runtime holds the session state machine of the relay and the plumbing
// that carries its output to connections.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"chat-relay/runtime/workers"
	"chat-relay/sink"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var _ contract.IPublisher = (*Orchestrator)(nil)

type Config struct {
	BufferSize        int
	SinkTimeout       time.Duration
	PublishTimeout    time.Duration
	TelemetryInterval time.Duration
	// GraceWindow defaults to DefaultGraceWindow. Only tests shorten it.
	GraceWindow time.Duration
	Clock       clockwork.Clock
}

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = 100 * time.Millisecond
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 250 * time.Millisecond
	}
	if c.TelemetryInterval <= 0 {
		c.TelemetryInterval = 15 * time.Second
	}
	return c
}

// Orchestrator owns the envelope queue between the coordinator and the fan-out
// worker, and runs the long-lived workers under the supervisor.
type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	config         Config
	supervisor     contract.ISupervisor
	metrics        *observability.Metrics
	sessions       *Sessions
	registry       *Registry
	coordinator    *Coordinator
	envelopes      chan event.Envelope
	permanentSinks []contract.EventSink
	done           chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	metrics *observability.Metrics, config Config) *Orchestrator {
	config = config.withDefaults()
	o := &Orchestrator{
		log:        log,
		config:     config,
		supervisor: supervisor,
		metrics:    metrics,
		sessions:   NewSessions(),
		registry:   NewRegistry(),
		envelopes:  make(chan event.Envelope, config.BufferSize),
	}
	o.coordinator = NewCoordinator(log, o.registry, o.sessions, o, config.GraceWindow, config.Clock)
	return o
}

func (o *Orchestrator) Coordinator() *Coordinator { return o.coordinator }

// Add registers sinks that receive every envelope once. Must be called before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Publish enqueues an envelope. It is called with the coordinator lock held, so
// it waits at most PublishTimeout for room in the queue before dropping.
func (o *Orchestrator) Publish(env event.Envelope) {
	select {
	case o.envelopes <- env:
		return
	default:
	}

	timer := time.NewTimer(o.config.PublishTimeout)
	defer timer.Stop()
	select {
	case o.envelopes <- env:
	case <-timer.C:
		o.metrics.EventsDropped.WithLabelValues("queue_full").Inc()
		o.log.Warn("Envelope queue full, dropping event", "event", env.Event.EventName())
	}
}

// Start registers the fan-out and sampling workers and runs the supervisor in
// the background. Stop must be called to release it.
func (o *Orchestrator) Start(ctx context.Context) error {
	// Preparation phase (No Lock)
	metricsSink := sink.NewMetricsSink(o.metrics)

	o.mu.Lock()
	permanentSinks := append([]contract.EventSink{metricsSink}, o.permanentSinks...)
	fanout := workers.NewEventFanout(o.log, o.envelopes, o.sessions, o.config.SinkTimeout, permanentSinks...)
	telemetry := workers.NewTelemetryWorker(o.log, o.coordinator, o.metrics, o.config.TelemetryInterval)
	capacity := workers.NewChannelCapacityWorker(o.log, o.metrics, o.config.TelemetryInterval,
		workers.NamedChannel{Name: "envelopes", Channel: o.envelopes})
	o.supervisor.Add(fanout, telemetry, capacity)
	o.done = make(chan struct{})
	done := o.done
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	go func() {
		defer close(done)
		o.supervisor.Run(ctx)
	}()
	return nil
}

// Stop cancels pending grace windows without announcing them, then stops the
// workers and waits for them.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.coordinator.Close()
	o.supervisor.Stop()

	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
	o.log.Debug("Orchestrator stopped")
}
