package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "haven_"

var (
	registerOnce sync.Once

	commandsTotal  *prometheus.CounterVec
	commandLatency *prometheus.HistogramVec

	busPublishesTotal *prometheus.CounterVec

	sessionsConnected prometheus.Gauge
	sessionsTotal     prometheus.Counter
)

// Init registers the hub metrics with the default registry.
// Safe to call more than once; registration happens exactly once.
func Init() {
	registerOnce.Do(func() {
		commandsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_total",
				Help: "Total routed commands by method and result",
			},
			[]string{"method", "result"},
		)
		commandLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "command_latency_seconds",
				Help:    "Command handling latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)

		busPublishesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bus_publishes_total",
				Help: "Total device bus publishes by result",
			},
			[]string{"result"},
		)

		sessionsConnected = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "sessions_connected",
				Help: "Currently connected WebSocket sessions",
			},
		)
		sessionsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sessions_total",
				Help: "Total WebSocket sessions accepted",
			},
		)

		prometheus.MustRegister(
			commandsTotal,
			commandLatency,
			busPublishesTotal,
			sessionsConnected,
			sessionsTotal,
		)
	})
}

// ObserveCommand records one routed command with its result and duration.
func ObserveCommand(method, result string, duration time.Duration) {
	if method == "" {
		method = "unknown"
	}
	if result == "" {
		result = "ok"
	}
	if commandsTotal != nil {
		commandsTotal.WithLabelValues(method, result).Inc()
	}
	if commandLatency != nil {
		commandLatency.WithLabelValues(method).Observe(duration.Seconds())
	}
}

// IncBusPublish increments the device bus publish counter.
func IncBusPublish(result string) {
	if result == "" {
		result = "ok"
	}
	if busPublishesTotal != nil {
		busPublishesTotal.WithLabelValues(result).Inc()
	}
}

// SessionOpened records a newly accepted session.
func SessionOpened() {
	if sessionsTotal != nil {
		sessionsTotal.Inc()
	}
	if sessionsConnected != nil {
		sessionsConnected.Inc()
	}
}

// SessionClosed records a session teardown.
func SessionClosed() {
	if sessionsConnected != nil {
		sessionsConnected.Dec()
	}
}
