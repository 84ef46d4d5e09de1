package test

import (
	"chat-relay/client"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/transport/httpapi"
	"chat-relay/transport/ws"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_Scenario(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req := require.New(t)
	grace := 300 * time.Millisecond

	// 1. Create channel to wait for the departure at the end of process
	done := make(chan struct{})
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	supervisor := workers.NewSupervisor(log, 200*time.Millisecond)
	orchestrator := runtime.NewOrchestrator(log, supervisor, metrics, runtime.Config{
		BufferSize:        10,
		SinkTimeout:       500 * time.Millisecond,
		PublishTimeout:    500 * time.Millisecond,
		TelemetryInterval: 100 * time.Millisecond,
		GraceWindow:       grace,
	})

	ctrl := gomock.NewController(t)
	mockTimelineSink := mocks.NewMockEventSink(ctrl)
	mockTimelineSink.EXPECT().
		Consume(gomock.Any(), event.UserLeft{Nickname: "alice"}).
		Do(func(context.Context, event.DomainEvent) {
			close(done) // Signaling the departure has been announced
		}).
		Return(nil).
		Times(1)
	mockTimelineSink.EXPECT().Consume(gomock.Any(), gomock.Not(event.UserLeft{Nickname: "alice"})).Return(nil).AnyTimes()
	orchestrator.Add(mockTimelineSink)
	req.NoError(orchestrator.Start(ctx))

	relay := ws.NewServer(log, ws.Config{}, orchestrator.Coordinator(), metrics)
	srv := httptest.NewServer(httpapi.NewRouter(log, relay, orchestrator.Coordinator(), httpapi.Options{Gatherer: registry}))

	// Clean everything at the end of the test
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = relay.Shutdown(shutdownCtx)
		srv.Close()
		orchestrator.Stop()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	alice, err := client.Dial(ctx, url)
	req.NoError(err)
	bob, err := client.Dial(ctx, url)
	req.NoError(err)
	defer bob.Close()
	req.Eventually(func() bool { return sessions(t, srv.URL).Connections == 2 }, 2*time.Second, 10*time.Millisecond)

	// When alice joins and talks
	req.NoError(alice.SetNickname("alice"))
	req.NoError(alice.Expect(ctx, event.NicknameResponseName, nil))
	req.NoError(bob.Expect(ctx, event.UserJoinedName, nil))
	req.NoError(alice.SendMessage("this message will self destruct in 5 seconds", "12:00"))
	req.NoError(bob.Expect(ctx, event.ChatMessageName, nil))

	// Then the sessions endpoint lists her
	req.Equal([]domain.Nickname{"alice"}, sessions(t, srv.URL).Nicknames)

	// When she leaves for good
	req.NoError(alice.Drop())

	// And wait time for channels & goroutines
	select {
	case <-done:
		// Then the departure has reached the permanent sink
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: departure has never been announced")
	}
	req.NoError(bob.Expect(ctx, event.UserLeftName, nil))
	req.Empty(sessions(t, srv.URL).Nicknames)
}

func sessions(t *testing.T, baseURL string) domain.Snapshot {
	resp, err := http.Get(baseURL + "/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	var snapshot domain.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	return snapshot
}
