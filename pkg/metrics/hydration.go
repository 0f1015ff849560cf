package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HydrationMetrics records background hydration job outcomes.
type HydrationMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	retries  prometheus.Counter
	depth    prometheus.Gauge
}

// NewHydrationMetrics registers the hydration metrics on the provided registerer.
func NewHydrationMetrics(reg prometheus.Registerer) *HydrationMetrics {
	if reg == nil {
		return &HydrationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hydration_job_duration_seconds",
		Help:    "Duration of hydration jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hydration_job_success",
		Help: "Successful hydration job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hydration_job_failure",
		Help: "Failed hydration job executions.",
	}, []string{"job"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hydration_job_retries",
		Help: "Hydration jobs re-queued after a failed attempt.",
	})
	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hydration_queue_depth",
		Help: "Pending jobs on the hydration queue.",
	})
	reg.MustRegister(duration, success, failure, retries, depth)
	return &HydrationMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		retries:  retries,
		depth:    depth,
	}
}

// ObserveDuration records the duration for the named job.
func (m *HydrationMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (m *HydrationMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (m *HydrationMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncRetry counts a job put back on the queue after a failed attempt.
func (m *HydrationMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}

// SetQueueDepth records the current queue depth.
func (m *HydrationMetrics) SetQueueDepth(depth int64) {
	if m == nil || m.depth == nil {
		return
	}
	m.depth.Set(float64(depth))
}
