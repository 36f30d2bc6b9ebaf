package conn

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "flowsync"
	subsystem = "connection"
)

// Metrics are the Prometheus metrics of a connection manager.
type Metrics struct {
	messagesIn  *prometheus.CounterVec // by protocol
	messagesOut *prometheus.CounterVec // by protocol
	malformed   prometheus.Counter
	dropped     prometheus.Counter
	reconnects  prometheus.Counter
	queued      prometheus.Gauge
	socketState prometheus.Gauge
}

// NewMetrics creates the connection metrics and registers them with reg. A
// nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		messagesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_received_total",
			Help:      "Messages received from the runtime",
		}, []string{"protocol"}),

		messagesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Messages sent to the runtime",
		}, []string{"protocol"}),

		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "malformed_messages_total",
			Help:      "Received messages that could not be decoded",
		}),

		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dropped_messages_total",
			Help:      "Outgoing messages dropped because the send queue was full",
		}),

		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reconnect_attempts_total",
			Help:      "Reconnection attempts after an abnormal closure",
		}),

		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queued_messages",
			Help:      "Outgoing messages waiting for the connection to open",
		}),

		socketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "socket_state",
			Help:      "Transport state: 0 closed, 1 connecting, 2 open, 3 closing",
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{
		m.messagesIn,
		m.messagesOut,
		m.malformed,
		m.dropped,
		m.reconnects,
		m.queued,
		m.socketState,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}
