package stellar

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridged_stellar_events_fetched_total",
			Help: "Total number of bridge events read from Soroban RPC",
		})
	eventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_stellar_events_skipped_total",
			Help: "Total number of contract events the watcher could not decode",
		}, []string{"reason"})
	submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_stellar_submissions_total",
			Help: "Total number of release submissions by outcome",
		}, []string{"outcome"})
)
