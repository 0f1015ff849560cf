package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics records product fetch and persistence outcomes.
type IngestMetrics struct {
	fetchDuration *prometheus.HistogramVec
	fetchSuccess  *prometheus.CounterVec
	fetchFailure  *prometheus.CounterVec
	videosFailed  prometheus.Counter
	videosSkipped prometheus.Counter
}

// NewIngestMetrics registers the ingestion metrics on the provided registerer.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	if reg == nil {
		return &IngestMetrics{}
	}
	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_fetch_duration_seconds",
		Help:    "Duration of upstream product fetches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	fetchSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_fetch_success",
		Help: "Successful upstream product fetches.",
	}, []string{"operation"})
	fetchFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_fetch_failure",
		Help: "Failed upstream product fetches.",
	}, []string{"operation"})
	videosFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_videos_failed",
		Help: "Video rows that failed to persist.",
	})
	videosSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_videos_skipped",
		Help: "Video rows skipped as duplicates.",
	})
	reg.MustRegister(fetchDuration, fetchSuccess, fetchFailure, videosFailed, videosSkipped)
	return &IngestMetrics{
		fetchDuration: fetchDuration,
		fetchSuccess:  fetchSuccess,
		fetchFailure:  fetchFailure,
		videosFailed:  videosFailed,
		videosSkipped: videosSkipped,
	}
}

// ObserveFetch records the duration for the named fetch operation.
func (m *IngestMetrics) ObserveFetch(operation string, duration time.Duration) {
	if m == nil || m.fetchDuration == nil {
		return
	}
	m.fetchDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncFetchSuccess increments the success counter for the named operation.
func (m *IngestMetrics) IncFetchSuccess(operation string) {
	if m == nil || m.fetchSuccess == nil {
		return
	}
	m.fetchSuccess.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFetchFailure increments the failure counter for the named operation.
func (m *IngestMetrics) IncFetchFailure(operation string) {
	if m == nil || m.fetchFailure == nil {
		return
	}
	m.fetchFailure.WithLabelValues(normalizeLabel(operation)).Inc()
}

// AddVideosFailed counts video rows that could not be written.
func (m *IngestMetrics) AddVideosFailed(n int) {
	if m == nil || m.videosFailed == nil || n <= 0 {
		return
	}
	m.videosFailed.Add(float64(n))
}

// AddVideosSkipped counts video rows dropped as duplicates.
func (m *IngestMetrics) AddVideosSkipped(n int) {
	if m == nil || m.videosSkipped == nil || n <= 0 {
		return
	}
	m.videosSkipped.Add(float64(n))
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
