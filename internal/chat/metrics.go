// internal/chat/metrics.go

package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconciliation outcomes for incoming messages.
const (
	reconcileByClientID = "client_id"
	reconcileByScan     = "content_scan"
	reconcileAppended   = "appended"
)

var (
	eventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_received_total",
			Help: "Total transport events received, by event name",
		},
		[]string{"event"},
	)

	eventsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_sent_total",
			Help: "Total transport events emitted, by event name",
		},
		[]string{"event"},
	)

	reconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_message_reconciliations_total",
			Help: "Incoming messages by reconciliation outcome",
		},
		[]string{"outcome"},
	)

	validationRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_validation_rejects_total",
			Help: "Outbound sends blocked by validation, by kind",
		},
		[]string{"kind"},
	)
)
