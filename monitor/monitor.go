// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ActiveRooms       prometheus.Gauge
	ConnectedStations prometheus.Gauge
	CommandsReceived  prometheus.Counter
	CommandLatency    prometheus.Histogram
	RoundsStarted     prometheus.Counter
	RoundsCompleted   prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),
		ConnectedStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_stations",
			Help:      "Number of station slots with a live connection",
		}),
		CommandsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_received_total",
			Help:      "Total number of client commands received",
		}),
		CommandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_latency_seconds",
			Help:      "Command processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Total number of rounds started",
		}),
		RoundsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_completed_total",
			Help:      "Total number of rounds that ran out or were skipped",
		}),
	}

	prometheus.MustRegister(
		m.ActiveRooms,
		m.ConnectedStations,
		m.CommandsReceived,
		m.CommandLatency,
		m.RoundsStarted,
		m.RoundsCompleted,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	startTime    time.Time
	commandCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	expvar.Publish("commands", expvar.Func(func() interface{} {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		return m.commandCount
	}))

	go http.ListenAndServe(addr, nil)
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncConnectedStations() {
	m.metrics.ConnectedStations.Inc()
}

func (m *Monitor) DecConnectedStations() {
	m.metrics.ConnectedStations.Dec()
}

func (m *Monitor) IncCommandsReceived() {
	m.metrics.CommandsReceived.Inc()
	m.mutex.Lock()
	m.commandCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveCommandLatency(duration time.Duration) {
	m.metrics.CommandLatency.Observe(duration.Seconds())
}

func (m *Monitor) IncRoundsStarted() {
	m.metrics.RoundsStarted.Inc()
}

func (m *Monitor) IncRoundsCompleted() {
	m.metrics.RoundsCompleted.Inc()
}
