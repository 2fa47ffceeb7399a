// Package metrics exposes the Prometheus counters and histograms the
// frame pipeline, slate detector and action executor report into, plus the
// tiny HTTP surface (metrics + latest-frame snapshot) the spec calls the
// "metrics thread".
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/histogram the worker reports. A single
// instance is constructed per Watcher and registered against its own
// prometheus.Registry so that multiple Watchers in the same process never
// collide on metric names.
type Metrics struct {
	registry *prometheus.Registry

	FrameProcessingDuration     prometheus.Histogram
	SimilarityExecutionDuration prometheus.Histogram
	SimilarityExecutionTotal    prometheus.Counter
	FoundSlateTotal             prometheus.Counter
	FoundContentTotal           prometheus.Counter
	HTTPCallDuration            prometheus.Histogram
	HTTPCallSuccessTotal        prometheus.Counter
	HTTPCallErrorTotal          prometheus.Counter
	HTTPCallRetriedTotal        prometheus.Counter
	HTTPCallRetriesExhaustedTotal prometheus.Counter
}

// New builds and registers the full metric set.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		FrameProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "frame_processing_duration",
			Help:    "Time spent classifying a single decoded frame (black check and slate match), in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		SimilarityExecutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "similarity_execution_duration",
			Help:    "Time spent comparing a frame against every reference slate, in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		SimilarityExecutionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "similarity_execution_total",
			Help: "Count of similarity comparisons performed.",
		}),
		FoundSlateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "found_slate_total",
			Help: "Count of frames classified as matching a reference slate.",
		}),
		FoundContentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "found_content_total",
			Help: "Count of frames classified as content.",
		}),
		HTTPCallDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "http_call_duration",
			Help:    "Time spent performing a single HttpCall attempt, in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPCallSuccessTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_call_success_total",
			Help: "Count of HttpCall attempts that returned a successful status.",
		}),
		HTTPCallErrorTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_call_error_total",
			Help: "Count of HttpCall attempts that failed or returned a non-successful status.",
		}),
		HTTPCallRetriedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_call_retried_total",
			Help: "Count of HttpCall retry attempts issued.",
		}),
		HTTPCallRetriesExhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_call_retries_exhausted_total",
			Help: "Count of HttpCall invocations that failed even after exhausting their retry budget.",
		}),
	}

	reg.MustRegister(
		m.FrameProcessingDuration,
		m.SimilarityExecutionDuration,
		m.SimilarityExecutionTotal,
		m.FoundSlateTotal,
		m.FoundContentTotal,
		m.HTTPCallDuration,
		m.HTTPCallSuccessTotal,
		m.HTTPCallErrorTotal,
		m.HTTPCallRetriedTotal,
		m.HTTPCallRetriesExhaustedTotal,
	)
	reg.MustRegister(newProcessCollector())

	return m
}

// Registry returns the registry this metric set was registered against, for
// wiring into a promhttp handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveHTTPCallDuration and the Inc* methods below satisfy
// internal/executor.Recorder, letting the Action Executor Runtime report
// directly into this metric set without importing the Prometheus client.
func (m *Metrics) ObserveHTTPCallDuration(d time.Duration) { m.HTTPCallDuration.Observe(d.Seconds()) }
func (m *Metrics) IncHTTPCallSuccess()                     { m.HTTPCallSuccessTotal.Inc() }
func (m *Metrics) IncHTTPCallError()                       { m.HTTPCallErrorTotal.Inc() }
func (m *Metrics) IncHTTPCallRetried()                     { m.HTTPCallRetriedTotal.Inc() }
func (m *Metrics) IncHTTPCallRetriesExhausted()            { m.HTTPCallRetriesExhaustedTotal.Inc() }

// ObserveFrameProcessingDuration records the cost of classifying one decoded
// frame.
func (m *Metrics) ObserveFrameProcessingDuration(d time.Duration) {
	m.FrameProcessingDuration.Observe(d.Seconds())
}

// ObserveSimilarityExecution records one similarity comparison pass.
func (m *Metrics) ObserveSimilarityExecution(d time.Duration) {
	m.SimilarityExecutionDuration.Observe(d.Seconds())
	m.SimilarityExecutionTotal.Inc()
}

// RecordClassification increments the slate/content classification counter
// matching the given mode. Black-frame drops intentionally increment
// neither, since spec ties these two counters to slate/content outcomes.
func (m *Metrics) RecordClassification(isSlate bool) {
	if isSlate {
		m.FoundSlateTotal.Inc()
		return
	}
	m.FoundContentTotal.Inc()
}
