package workers

import (
	"chat-relay/contract"
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker periodically samples the relay sessions and the process
// itself, and publishes both as gauges.
type TelemetryWorker struct {
	log            *slog.Logger
	source         contract.ISnapshotter
	metrics        *observability.Metrics
	metricInterval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, source contract.ISnapshotter,
	metrics *observability.Metrics, metricInterval time.Duration) *TelemetryWorker {
	if metricInterval <= 0 {
		metricInterval = 15 * time.Second
	}
	return &TelemetryWorker{
		log:            log,
		source:         source,
		metrics:        metrics,
		metricInterval: metricInterval,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		w.log.Warn("Process stats unavailable", "error", err)
		p = nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *TelemetryWorker) sample(p *process.Process) {
	snapshot := w.source.Snapshot()
	w.metrics.ObserveSnapshot(snapshot)

	attrs := []any{
		"connections", snapshot.Connections,
		"nicknames", len(snapshot.Nicknames),
		"pending", len(snapshot.Pending),
	}
	if p != nil {
		rss, cpu, err := selfStats(p)
		if err != nil {
			w.log.Debug("Failed to collect self stats", "error", err)
		} else {
			w.metrics.ObserveProcess(rss, cpu)
			attrs = append(attrs, "rss_bytes", rss, "cpu_percent", cpu)
		}
	}
	w.log.Debug("Relay telemetry", attrs...)
}

// selfStats retrieves resident memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
