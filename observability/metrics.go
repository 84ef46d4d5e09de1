package observability

import (
	"chat-relay/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat_relay"

// Metrics groups every Prometheus collector exposed by the relay.
type Metrics struct {
	ConnectionsOpened prometheus.Counter
	ConnectionsClosed prometheus.Counter
	Connections       prometheus.Gauge
	Nicknames         prometheus.Gauge
	PendingGraces     prometheus.Gauge
	EventsPublished   *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	Claims            *prometheus.CounterVec
	FramesRejected    *prometheus.CounterVec
	ProcessRSS        prometheus.Gauge
	ProcessCPU        prometheus.Gauge
	QueueLength       *prometheus.GaugeVec
	QueueCapacity     *prometheus.GaugeVec
}

// NewMetrics registers the relay collectors on reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connections_opened_total",
			Help: "WebSocket connections accepted.",
		}),
		ConnectionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connections_closed_total",
			Help: "WebSocket connections torn down.",
		}),
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Open connections, sampled.",
		}),
		Nicknames: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "nicknames_bound",
			Help: "Nicknames bound to a live connection, sampled.",
		}),
		PendingGraces: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "grace_windows_pending",
			Help: "Nicknames inside their reconnection grace window, sampled.",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_published_total",
			Help: "Outbound events produced by the coordinator.",
		}, []string{"event"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_dropped_total",
			Help: "Outbound events lost before reaching a socket.",
		}, []string{"reason"}),
		Claims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "nickname_claims_total",
			Help: "Nickname responses sent, by outcome.",
		}, []string{"result"}),
		FramesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_rejected_total",
			Help: "Inbound frames dropped before reaching the coordinator.",
		}, []string{"reason"}),
		ProcessRSS: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_resident_bytes",
			Help: "Resident memory of the relay process.",
		}),
		ProcessCPU: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_cpu_percent",
			Help: "CPU usage of the relay process.",
		}),
		QueueLength: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_length",
			Help: "Items waiting in an internal channel, sampled.",
		}, []string{"channel"}),
		QueueCapacity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_capacity",
			Help: "Buffer size of an internal channel.",
		}, []string{"channel"}),
	}
}

func (m *Metrics) ObserveSnapshot(s domain.Snapshot) {
	m.Connections.Set(float64(s.Connections))
	m.Nicknames.Set(float64(len(s.Nicknames)))
	m.PendingGraces.Set(float64(len(s.Pending)))
}

func (m *Metrics) ObserveQueue(name string, length, capacity int) {
	m.QueueLength.WithLabelValues(name).Set(float64(length))
	m.QueueCapacity.WithLabelValues(name).Set(float64(capacity))
}

func (m *Metrics) ObserveProcess(rss uint64, cpuPercent float64) {
	m.ProcessRSS.Set(float64(rss))
	m.ProcessCPU.Set(cpuPercent)
}
