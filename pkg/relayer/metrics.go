package relayer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_relayer_events_observed_total",
			Help: "Total number of bridge events observed per origin chain",
		}, []string{"chain", "event"})

	eventsMalformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_relayer_events_malformed_total",
			Help: "Total number of bridge events dropped because they failed validation",
		}, []string{"chain"})

	messagesSigned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_relayer_messages_signed_total",
			Help: "Total number of messages signed by this guardian per origin chain",
		}, []string{"chain"})

	messagesDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_relayer_messages_delivered_total",
			Help: "Total number of messages accepted by the destination chain",
		}, []string{"chain"})

	messagesAlreadyDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_relayer_messages_already_delivered_total",
			Help: "Total number of messages skipped because the destination had already applied them",
		}, []string{"chain"})

	messagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_relayer_messages_rejected_total",
			Help: "Total number of messages the destination contract refused for good",
		}, []string{"chain"})

	relayErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_relayer_errors_total",
			Help: "Total number of failed relay attempts per origin chain and stage",
		}, []string{"chain", "stage"})
)
