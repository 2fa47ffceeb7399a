package transition

import "time"

// Recorder receives the per-frame similarity timing. Implemented by
// internal/metrics; kept as an interface here so this package never imports
// the Prometheus client directly.
type Recorder interface {
	ObserveSimilarityExecution(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveSimilarityExecution(time.Duration) {}
