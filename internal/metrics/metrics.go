package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconstruction metrics
var (
	TransfersDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftwatch_transfers_detected_total",
		Help: "The total number of transfers rebuilt from contract logs",
	})

	UnmatchedObservations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftwatch_unmatched_observations_total",
		Help: "Sender observations that had no receiver at the same token id and timestamp",
	})

	SkippedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftwatch_skipped_records_total",
		Help: "Log records dropped because they do not have four topics",
	})
)

// Watcher metrics
var (
	PollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftwatch_poll_errors_total",
		Help: "Poll failures by stage",
	}, []string{"stage"})

	LastCheckedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftwatch_last_checked_block",
		Help: "The last block whose logs were fully processed",
	})

	LatestBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftwatch_latest_block",
		Help: "The latest block reported by the block source",
	})
)
