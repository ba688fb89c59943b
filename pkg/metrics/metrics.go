// Package metrics defines the prometheus collectors shared across the
// orchestrator and pipeline, beyond the progress registry's own
// active-job gauge and terminal counter: per-stage duration and job
// start/success/failure totals.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/karaokeforge/pipeline/domain/model"
)

// Collectors bundles every metric a Pipeline/Orchestrator records against.
type Collectors struct {
	JobsStarted  prometheus.Counter
	JobsFailed   *prometheus.CounterVec
	StageSeconds *prometheus.HistogramVec
}

// New creates a fresh, unregistered Collectors set.
func New() *Collectors {
	return &Collectors{
		JobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "karaoke_jobs_started_total",
			Help: "Count of jobs admitted into the pipeline.",
		}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "karaoke_jobs_failed_total",
			Help: "Count of jobs that failed, by the stage they failed in.",
		}, []string{"stage"}),
		StageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "karaoke_stage_duration_seconds",
			Help:    "Wall-clock duration of each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"stage"}),
	}
}

// Register adds every collector to reg.
func (c *Collectors) Register(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{c.JobsStarted, c.JobsFailed, c.StageSeconds} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// ObserveStage records a stage's duration in seconds.
func (c *Collectors) ObserveStage(stage model.JobStage, seconds float64) {
	c.StageSeconds.WithLabelValues(string(stage)).Observe(seconds)
}

// RecordFailure increments the failure counter for the stage a job died in.
func (c *Collectors) RecordFailure(stage model.JobStage) {
	c.JobsFailed.WithLabelValues(string(stage)).Inc()
}
