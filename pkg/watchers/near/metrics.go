package near

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridged_near_blocks_scanned_total",
			Help: "Total number of NEAR blocks scanned for bridge transactions",
		})
	eventsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridged_near_events_fetched_total",
			Help: "Total number of bridge events read from NEAR receipts",
		})
	eventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_near_events_skipped_total",
			Help: "Total number of contract logs the watcher could not decode",
		}, []string{"reason"})
	submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridged_near_submissions_total",
			Help: "Total number of mint transactions by outcome",
		}, []string{"outcome"})
)
