package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRunsTotal counts freshness-engine runs by outcome.
	// outcome: skip_fresh, cron_refresh, empty, error, rejected
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsync_sync_runs_total",
			Help: "Total freshness engine runs by outcome.",
		},
		[]string{"outcome"},
	)

	// SyncDuration tracks how long a full sync run takes, fetch included.
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetsync_sync_duration_seconds",
			Help:    "Duration of freshness engine runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// DatasetRecords is the record count after the last successful write.
	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetsync_dataset_records",
			Help: "Number of vehicle records in the durable store.",
		},
	)

	// DatasetAgeHours is the dataset age as of the last engine evaluation.
	DatasetAgeHours = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetsync_dataset_age_hours",
			Help: "Age of the stored dataset in hours at last check.",
		},
	)

	// CacheRequestsTotal counts cache lookups on the read path.
	// result: hit, miss
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsync_cache_requests_total",
			Help: "Cache lookups on the API read path by result.",
		},
		[]string{"key", "result"},
	)

	// RecordsPruned counts records removed by retention pruning.
	RecordsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsync_records_pruned_total",
			Help: "Records removed by retention pruning.",
		},
	)
)
