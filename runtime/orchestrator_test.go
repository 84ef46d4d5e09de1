package runtime_test

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/sink"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(t *testing.T, grace time.Duration) (*runtime.Orchestrator, *observability.Metrics) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	supervisor := workers.NewSupervisor(log, 10*time.Millisecond)
	orchestrator := runtime.NewOrchestrator(log, supervisor, metrics, runtime.Config{
		BufferSize:        16,
		SinkTimeout:       50 * time.Millisecond,
		PublishTimeout:    50 * time.Millisecond,
		TelemetryInterval: 10 * time.Millisecond,
		GraceWindow:       grace,
	})
	return orchestrator, metrics
}

func Test_Orchestrator_delivers_envelopes_to_their_audience(t *testing.T) {
	req := require.New(t)
	orchestrator, metrics := newOrchestrator(t, time.Second)
	everything := sink.NewTimeline()
	orchestrator.Add(everything)
	req.NoError(orchestrator.Start(context.Background()))
	defer orchestrator.Stop()

	coordinator := orchestrator.Coordinator()
	a, b := domain.NewConnectionID(), domain.NewConnectionID()
	timelineA, timelineB := sink.NewTimeline(), sink.NewTimeline()
	coordinator.Connect(a, timelineA)
	coordinator.Connect(b, timelineB)

	// When A joins and talks
	coordinator.SetNickname(domain.SetNicknameCommand{ConnectionID: a, Nickname: "alice"})
	coordinator.PostMessage(domain.PostMessageCommand{ConnectionID: a, Content: "hi", Timestamp: "12:00"})

	// Then B sees the join then the message
	req.Eventually(func() bool { return len(timelineB.Events()) == 2 }, time.Second, 5*time.Millisecond)
	req.Equal([]event.DomainEvent{
		event.UserJoined{Nickname: "alice"},
		event.MessagePosted{Nickname: "alice", Message: "hi", Timestamp: "12:00"},
	}, timelineB.Events())

	// And A only gets its reply
	req.Eventually(func() bool { return len(timelineA.Events()) == 1 }, time.Second, 5*time.Millisecond)
	req.Equal(event.NicknameResponse{Success: true, Nickname: "alice"}, timelineA.Events()[0])

	// And permanent sinks see each envelope once
	req.Eventually(func() bool { return len(everything.Events()) == 3 }, time.Second, 5*time.Millisecond)
	req.Eventually(func() bool {
		return testutil.ToFloat64(metrics.Claims.WithLabelValues("accepted")) == 1
	}, time.Second, 5*time.Millisecond)
}

func Test_Orchestrator_announces_departure_after_grace(t *testing.T) {
	req := require.New(t)
	orchestrator, metrics := newOrchestrator(t, 100*time.Millisecond)
	req.NoError(orchestrator.Start(context.Background()))
	defer orchestrator.Stop()

	coordinator := orchestrator.Coordinator()
	a, b := domain.NewConnectionID(), domain.NewConnectionID()
	timelineB := sink.NewTimeline()
	coordinator.Connect(a, sink.NewTimeline())
	coordinator.Connect(b, timelineB)
	coordinator.SetNickname(domain.SetNicknameCommand{ConnectionID: a, Nickname: "alice"})

	// When A drops for good
	coordinator.Disconnect(a)

	// Then B sees alice leave once the window is over
	req.Eventually(func() bool { return len(timelineB.Named(event.UserLeftName)) == 1 },
		time.Second, 5*time.Millisecond)
	req.Empty(coordinator.Snapshot().Pending)

	// And telemetry reflects the remaining connection
	req.Eventually(func() bool { return testutil.ToFloat64(metrics.Connections) == 1 },
		time.Second, 5*time.Millisecond)
}

func Test_Orchestrator_stop_cancels_pending_departures(t *testing.T) {
	req := require.New(t)
	orchestrator, _ := newOrchestrator(t, 50*time.Millisecond)
	everything := sink.NewTimeline()
	orchestrator.Add(everything)
	req.NoError(orchestrator.Start(context.Background()))

	coordinator := orchestrator.Coordinator()
	a := domain.NewConnectionID()
	coordinator.Connect(a, sink.NewTimeline())
	coordinator.SetNickname(domain.SetNicknameCommand{ConnectionID: a, Nickname: "alice"})
	coordinator.Disconnect(a)

	// When the relay stops inside the window
	orchestrator.Stop()

	// Then the departure is never announced
	time.Sleep(100 * time.Millisecond)
	req.Empty(everything.Named(event.UserLeftName))
}
