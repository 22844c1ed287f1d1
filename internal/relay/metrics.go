package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connected_clients",
		Help: "Number of currently registered clients",
	})

	PayloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_payloads_total",
		Help: "Received payloads by relay mode",
	}, []string{"mode"})

	PayloadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_payload_bytes_total",
		Help: "Bytes received from all clients",
	})

	BroadcastFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_broadcast_failures_total",
		Help: "Broadcast deliveries that failed for a single recipient",
	})

	AcceptErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_accept_errors_total",
		Help: "Failed accepts on the listening socket",
	})

	SessionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_session_duration_seconds",
		Help:    "Lifetime of client sessions",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})
)

func init() {
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(PayloadsTotal)
	prometheus.MustRegister(PayloadBytesTotal)
	prometheus.MustRegister(BroadcastFailuresTotal)
	prometheus.MustRegister(AcceptErrorsTotal)
	prometheus.MustRegister(SessionDuration)
}
