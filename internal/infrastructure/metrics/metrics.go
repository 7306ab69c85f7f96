package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the engine's Prometheus collectors. One instance is shared
// by the cache manager and the scheduler.
type Recorder struct {
	refreshJobs   *prometheus.CounterVec
	jobDuration   prometheus.Histogram
	cacheRequests *prometheus.CounterVec
}

// NewRecorder registers the engine's collectors on the given registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		refreshJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_refresh_jobs_total",
			Help: "Refresh jobs by platform and outcome.",
		}, []string{"platform", "outcome"}),
		jobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "analytics_refresh_job_duration_seconds",
			Help:    "Duration of individual refresh jobs.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_cache_requests_total",
			Help: "Analytics cache lookups by outcome (hit, miss, recompute).",
		}, []string{"outcome"}),
	}
}

// ObserveJob records one refresh job attempt.
func (r *Recorder) ObserveJob(platform string, success bool, seconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.refreshJobs.WithLabelValues(platform, outcome).Inc()
	r.jobDuration.Observe(seconds)
}

// ObserveCache records one cache lookup outcome.
func (r *Recorder) ObserveCache(outcome string) {
	r.cacheRequests.WithLabelValues(outcome).Inc()
}
