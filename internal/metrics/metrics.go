// Package metrics exposes Prometheus instrumentation for the job engine
// and HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	JobsSubmitted *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	JobsActive    prometheus.Gauge
	LLMCalls      prometheus.Counter
	LLMFailures   prometheus.Counter
}

// New registers the service metrics on the given registry. Pass
// prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_jobs_submitted_total",
			Help: "Jobs accepted for execution, by kind.",
		}, []string{"kind"}),
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_jobs_completed_total",
			Help: "Jobs finished, by kind and terminal status.",
		}, []string{"kind", "status"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feed_job_duration_seconds",
			Help:    "Wall-clock job execution time.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"kind"}),
		JobsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feed_jobs_active",
			Help: "Jobs currently running.",
		}),
		LLMCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "feed_llm_calls_total",
			Help: "Description generation calls sent to the model.",
		}),
		LLMFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "feed_llm_failures_total",
			Help: "Description generation calls that failed.",
		}),
	}
}
