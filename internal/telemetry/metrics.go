package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	PacketsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scsynth",
		Name:      "packets_sent_total",
		Help:      "Total number of OSC datagrams sent to the server.",
	})

	PacketsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scsynth",
		Name:      "packets_received_total",
		Help:      "Total number of OSC datagrams received from the server.",
	})

	DecodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scsynth",
		Name:      "decode_errors_total",
		Help:      "Total number of inbound datagrams that failed to decode.",
	})

	ReplyTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scsynth",
		Name:      "reply_timeouts_total",
		Help:      "Total number of requests that timed out waiting for a reply.",
	})

	SkippedReplies = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scsynth",
		Name:      "skipped_replies_total",
		Help:      "Total number of replies marked as never-to-be-claimed.",
	})

	ServerFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scsynth",
		Name:      "server_failures_total",
		Help:      "Total number of /fail notifications received.",
	})

	ScheduleDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scsynth",
		Name:      "schedule_drops_total",
		Help:      "Total number of timed actions dropped for running too late.",
	})
)

func init() {
	Registry.MustRegister(
		PacketsSent, PacketsReceived, DecodeErrors,
		ReplyTimeouts, SkippedReplies, ServerFailures, ScheduleDrops,
	)
}

// MetricsHandler exposes the package registry for embedding into an HTTP mux.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
