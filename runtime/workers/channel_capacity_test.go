package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_Reports_Length(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	// Given a channel holding 3 items out of 10
	envelopes := make(chan int, 10)
	envelopes <- 1
	envelopes <- 2
	envelopes <- 3

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker := NewChannelCapacityWorker(log, metrics, 5*time.Millisecond,
		NamedChannel{Name: "envelopes", Channel: envelopes},
		NamedChannel{Name: "broken", Channel: 42})
	go func() { _ = worker.Run(ctx) }()

	// Then both gauges are set, and the non channel is skipped
	req.Eventually(func() bool {
		return testutil.ToFloat64(metrics.QueueLength.WithLabelValues("envelopes")) == 3 &&
			testutil.ToFloat64(metrics.QueueCapacity.WithLabelValues("envelopes")) == 10
	}, time.Second, 5*time.Millisecond)
	req.Equal(1, testutil.CollectAndCount(metrics.QueueCapacity))
}
