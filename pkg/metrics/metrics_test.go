package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestIngestMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewIngestMetrics(reg)
	op := "fetch_product"
	metrics.ObserveFetch(op, 250*time.Millisecond)
	metrics.IncFetchSuccess(op)
	metrics.IncFetchFailure(op)
	metrics.AddVideosFailed(2)
	metrics.AddVideosSkipped(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ingest_fetch_success", "operation", op); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "ingest_fetch_failure", "operation", op); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "ingest_fetch_duration_seconds", "operation", op); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got := fetchPlainCounter(mfs, "ingest_videos_failed"); got != 2 {
		t.Fatalf("expected videos_failed=2, got %f", got)
	}
	if got := fetchPlainCounter(mfs, "ingest_videos_skipped"); got != 3 {
		t.Fatalf("expected videos_skipped=3, got %f", got)
	}
}

func TestHydrationMetricsExportsJobOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHydrationMetrics(reg)
	job := "hydrate_competitor"
	metrics.ObserveDuration(job, 100*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.IncRetry()
	metrics.SetQueueDepth(7)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "hydration_job_success", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got := fetchPlainCounter(mfs, "hydration_job_retries"); got != 1 {
		t.Fatalf("expected retries=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "hydration_queue_depth")
	if mf == nil {
		t.Fatal("hydration_queue_depth not exported")
	}
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 7 {
		t.Fatalf("expected queue depth 7, got %f", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var ingest *IngestMetrics
	ingest.ObserveFetch("x", time.Second)
	ingest.IncFetchSuccess("x")
	ingest.AddVideosFailed(1)

	var hydration *HydrationMetrics
	hydration.IncSuccess("x")
	hydration.SetQueueDepth(1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchPlainCounter(mfs []*dto.MetricFamily, name string) float64 {
	mf := findMetricFamily(mfs, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		return -1
	}
	return mf.GetMetric()[0].GetCounter().GetValue()
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
