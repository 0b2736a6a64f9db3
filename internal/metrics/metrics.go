// Package metrics holds the gateway's Prometheus collectors.
//
// Label sets are bounded: commands are labeled by their recognized kind
// (unrecognized verbs collapse to "unknown"), poll outcomes and remote
// operations by fixed names.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Poll outcomes.
const (
	OutcomeDelivered  = "delivered"
	OutcomeSuppressed = "suppressed"
	OutcomeLoopback   = "loopback"
	OutcomeMalformed  = "malformed"
	OutcomeDuplicate  = "duplicate"
)

// Remote operations.
const (
	OpExchange   = "exchange_credential"
	OpIdentities = "list_identities"
	OpFetch      = "fetch_messages"
	OpSend       = "send_message"
)

var (
	// SessionsActive gauges connected sessions.
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hmirc_sessions_active",
		Help: "Number of connected gateway sessions.",
	})

	// CommandsTotal counts commands drained by session sequencers.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hmirc_commands_total",
			Help: "Commands processed, by command kind.",
		},
		[]string{"command"},
	)

	// CommandFailuresTotal counts handlers that returned an error or panicked.
	CommandFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hmirc_command_failures_total",
			Help: "Command handlers that failed, by command kind.",
		},
		[]string{"command"},
	)

	// PollMessagesTotal counts polled messages by pipeline outcome.
	PollMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hmirc_poll_messages_total",
			Help: "Polled remote messages, by pipeline outcome.",
		},
		[]string{"outcome"},
	)

	// RemoteErrorsTotal counts failed remote calls.
	RemoteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hmirc_remote_errors_total",
			Help: "Failed remote chat service calls, by operation.",
		},
		[]string{"op"},
	)

	// PollDuration records the latency of message fetches.
	PollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hmirc_poll_duration_seconds",
		Help:    "Duration of remote message fetches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		SessionsActive,
		CommandsTotal,
		CommandFailuresTotal,
		PollMessagesTotal,
		RemoteErrorsTotal,
		PollDuration,
	)
}

// PollOutcome adds n to the counter for outcome. Zero is ignored.
func PollOutcome(outcome string, n int) {
	if n <= 0 {
		return
	}
	PollMessagesTotal.WithLabelValues(outcome).Add(float64(n))
}

// RemoteError records a failed remote call.
func RemoteError(op string) {
	RemoteErrorsTotal.WithLabelValues(op).Inc()
}
