package executor

import "time"

// Recorder receives counter/histogram updates for each HttpCall attempt.
// Implemented by internal/metrics; kept as an interface here so this package
// never imports the Prometheus client directly.
type Recorder interface {
	ObserveHTTPCallDuration(d time.Duration)
	IncHTTPCallSuccess()
	IncHTTPCallError()
	IncHTTPCallRetried()
	IncHTTPCallRetriesExhausted()
}

type noopRecorder struct{}

func (noopRecorder) ObserveHTTPCallDuration(time.Duration) {}
func (noopRecorder) IncHTTPCallSuccess()                   {}
func (noopRecorder) IncHTTPCallError()                     {}
func (noopRecorder) IncHTTPCallRetried()                   {}
func (noopRecorder) IncHTTPCallRetriesExhausted()          {}
