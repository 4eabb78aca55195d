// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlineConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	ConnectedPlayers  prometheus.Gauge
	MessagesReceived  *prometheus.CounterVec
	Errors            *prometheus.CounterVec
	Broadcasts        prometheus.Counter
	BroadcastFanout   prometheus.Counter
	SendFailures      prometheus.Counter
	Resyncs           prometheus.Counter
	Unresponsive      prometheus.Counter
	ActionLatency     prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlineConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_connections",
			Help:      "Number of open websocket connections",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),
		ConnectedPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_players",
			Help:      "Number of connections bound to a room session",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound messages by type",
		}, []string{"type"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Error replies sent to clients by kind",
		}, []string{"kind"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Room broadcasts",
		}),
		BroadcastFanout: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Frames queued by room broadcasts",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Frames that could not be queued on a connection",
		}),
		Resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resyncs_total",
			Help:      "Snapshots sent in answer to resync requests",
		}),
		Unresponsive: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresponsive_total",
			Help:      "Connections dropped after missing heartbeats",
		}),
		ActionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_latency_seconds",
			Help:      "Time to apply and broadcast one player action",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OnlineConnections,
		m.ActiveRooms,
		m.ConnectedPlayers,
		m.MessagesReceived,
		m.Errors,
		m.Broadcasts,
		m.BroadcastFanout,
		m.SendFailures,
		m.Resyncs,
		m.Unresponsive,
		m.ActionLatency,
	}
}

var (
	startTime   = time.Now()
	publishOnce sync.Once
	requests    expvar.Int
)

type Monitor struct {
	metrics  *Metrics
	gatherer prometheus.Gatherer
}

// NewMonitor registers the metrics on a fresh registry, together with the
// Go runtime and process collectors.
func NewMonitor(namespace string) *Monitor {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMonitorWithRegistry(namespace, registry, registry)
}

func NewMonitorWithRegistry(namespace string, registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Monitor {
	m := &Monitor{
		metrics:  NewMetrics(namespace),
		gatherer: gatherer,
	}
	registerer.MustRegister(m.metrics.collectors()...)

	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() any {
			return time.Since(startTime).Seconds()
		}))
		expvar.Publish("requests", &requests)
	})
	return m
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Handler serves the Prometheus metrics.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// VarsHandler serves the expvar variables.
func (m *Monitor) VarsHandler() http.Handler {
	return expvar.Handler()
}

func (m *Monitor) IncOnlineConnections() {
	m.metrics.OnlineConnections.Inc()
}

func (m *Monitor) DecOnlineConnections() {
	m.metrics.OnlineConnections.Dec()
}

func (m *Monitor) IncConnectedPlayers() {
	m.metrics.ConnectedPlayers.Inc()
}

func (m *Monitor) DecConnectedPlayers() {
	m.metrics.ConnectedPlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived(msgType string) {
	m.metrics.MessagesReceived.WithLabelValues(msgType).Inc()
	requests.Add(1)
}

func (m *Monitor) IncErrors(kind string) {
	m.metrics.Errors.WithLabelValues(kind).Inc()
}

func (m *Monitor) IncResyncs() {
	m.metrics.Resyncs.Inc()
}

func (m *Monitor) IncUnresponsive() {
	m.metrics.Unresponsive.Inc()
}

func (m *Monitor) ObserveActionLatency(duration time.Duration) {
	m.metrics.ActionLatency.Observe(duration.Seconds())
}

// ObserveBroadcast and IncSendFailures make Monitor a broadcast.Observer.
func (m *Monitor) ObserveBroadcast(recipients int) {
	m.metrics.Broadcasts.Inc()
	m.metrics.BroadcastFanout.Add(float64(recipients))
}

func (m *Monitor) IncSendFailures() {
	m.metrics.SendFailures.Inc()
}
