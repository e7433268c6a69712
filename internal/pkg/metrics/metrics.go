package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SessionAuthenticated is 1 while the relay session is authenticated.
	SessionAuthenticated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "anova_session_authenticated",
			Help: "Relay session state (1=authenticated, 0=not authenticated).",
		},
	)

	// FramesReceivedTotal counts inbound frames by command discriminator.
	FramesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anova_frames_received_total",
			Help: "Total number of frames received from the relay.",
		},
		[]string{"command"}, // unknown and malformed frames are labelled as such.
	)

	// CommandsTotal counts settled commands by outcome.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anova_commands_total",
			Help: "Total number of commands sent to ovens, by outcome.",
		},
		[]string{"command", "outcome"}, // outcome: ok/rejected/timeout/cancelled
	)

	// CommandLatency records the time from send to settlement.
	CommandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anova_command_latency_seconds",
			Help:    "Latency between sending a command and its response or timeout.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// PendingCommands is the number of commands awaiting a response.
	PendingCommands = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "anova_pending_commands",
			Help: "Number of commands awaiting a response.",
		},
	)

	// ScheduledRunsTotal counts scheduled recipe starts by outcome.
	ScheduledRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anova_scheduled_runs_total",
			Help: "Total number of scheduled recipe starts, by outcome.",
		},
		[]string{"recipe", "outcome"}, // outcome: ok/error
	)

	// Ovens is the number of ovens known to the registry.
	Ovens = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "anova_ovens",
			Help: "Number of ovens discovered on the relay.",
		},
	)
)

func init() {
	prometheus.MustRegister(SessionAuthenticated)
	prometheus.MustRegister(FramesReceivedTotal)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(CommandLatency)
	prometheus.MustRegister(PendingCommands)
	prometheus.MustRegister(ScheduledRunsTotal)
	prometheus.MustRegister(Ovens)
}
