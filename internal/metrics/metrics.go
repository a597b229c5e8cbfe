// Package metrics holds the Prometheus collectors recship exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsRecorded counts actions appended to a session log.
	ActionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recship_actions_recorded_total",
		Help: "Actions appended to the session log by kind",
	}, []string{"kind"})

	// EventsDropped counts DOM events that produced no action.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recship_events_dropped_total",
		Help: "Captured events that did not produce an action, by kind and reason",
	}, []string{"kind", "reason"})

	// SessionsFinalized counts finalized sessions.
	SessionsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recship_sessions_finalized_total",
		Help: "Recording sessions finalized",
	})

	// ChannelState reports the sync channel state (0 disconnected, 1 connecting, 2 connected).
	ChannelState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recship_channel_state",
		Help: "Sync channel connection state: 0 disconnected, 1 connecting, 2 connected",
	})

	// ChannelReconnects counts scheduled reconnect attempts.
	ChannelReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recship_channel_reconnects_total",
		Help: "Reconnect attempts scheduled by the sync channel",
	})

	// ChannelMessages counts messages crossing the sync channel.
	ChannelMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recship_channel_messages_total",
		Help: "Messages sent, received or dropped on the sync channel by type",
	}, []string{"direction", "type"})

	// FallbackWrites counts writes to the persistence fallback.
	FallbackWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recship_fallback_writes_total",
		Help: "Writes to the local persistence fallback by key and result",
	}, []string{"key", "result"})
)

// ObserveFallbackWrite records the outcome of a fallback write.
func ObserveFallbackWrite(key string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	FallbackWrites.WithLabelValues(key, result).Inc()
}

// ObserveDrop records an event that produced no action.
func ObserveDrop(kind, reason string) {
	EventsDropped.WithLabelValues(kind, reason).Inc()
}

// SetChannelState publishes the numeric channel state.
func SetChannelState(state int) {
	ChannelState.Set(float64(state))
}

// ObserveMessage records a channel message.
func ObserveMessage(direction, msgType string) {
	ChannelMessages.WithLabelValues(direction, msgType).Inc()
}
