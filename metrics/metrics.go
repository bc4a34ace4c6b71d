// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_commands_total",
			Help: "Dispatched inputs by command and outcome.",
		},
		[]string{"command", "outcome"},
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_command_duration_seconds",
			Help:    "Time spent dispatching one input.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	RealtimeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_realtime_events_total",
			Help: "Realtime events by type and fate (delivered, duplicate, filtered, dropped).",
		},
		[]string{"type", "fate"},
	)

	PresenceOnline = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oracle_presence_online",
			Help: "Actors currently present on a channel, as seen by this process.",
		},
		[]string{"channel"},
	)

	DirectoryRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_directory_refreshes_total",
			Help: "Actor directory refresh attempts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(RealtimeEvents)
	prometheus.MustRegister(PresenceOnline)
	prometheus.MustRegister(DirectoryRefreshes)
}
