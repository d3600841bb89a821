package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// viewAdmissions counts trackView outcomes:
	// admitted|duplicate|rate_limited|bot|degraded.
	viewAdmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_view_admissions_total",
			Help: "View tracking attempts by admission outcome.",
		},
		[]string{"outcome"},
	)

	// statsCache counts stats cache lookups by result: hit|miss|error.
	statsCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_stats_cache_total",
			Help: "Stats cache lookups by result.",
		},
		[]string{"result"},
	)

	recomputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engagement_recompute_duration_seconds",
			Help:    "Duration of full PostStats derivations.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// recomputeQueue counts background triggers: enqueued|coalesced|dropped|failed.
	recomputeQueue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_recompute_queue_total",
			Help: "Background recompute triggers by event.",
		},
		[]string{"event"},
	)

	// trackingDegraded counts swallowed infra failures per operation.
	trackingDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_tracking_degraded_total",
			Help: "Tracking writes that failed and were reported as degraded.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(viewAdmissions, statsCache, recomputeDuration, recomputeQueue, trackingDegraded)
}
