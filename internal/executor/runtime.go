// Package executor implements the Action Executor Runtime: a dedicated
// goroutine that drains dispatched transition events and performs their
// bound HttpCall side-effects, retrying on failure up to each Action's
// configured budget.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuehook/cuehook/internal/transition"
)

// Runtime consumes transition.ActionInvocation values from a single channel
// on its own goroutine. Within a single invocation, an Action's attempts
// are strictly serialized; distinct invocations are processed one at a
// time, in the order they were dispatched.
type Runtime struct {
	logger   *slog.Logger
	recorder Recorder
}

// New builds a Runtime. recorder may be nil, in which case metrics
// observations are discarded.
func New(logger *slog.Logger, recorder Recorder) *Runtime {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Runtime{logger: logger, recorder: recorder}
}

// Run drains in until it is closed, which is this runtime's Terminate
// signal, or until ctx is cancelled. It never returns an error: an Action
// failure after exhausted retries is logged and the loop continues.
func (r *Runtime) Run(ctx context.Context, in <-chan transition.ActionInvocation) {
	for {
		select {
		case inv, ok := <-in:
			if !ok {
				return
			}
			r.execute(ctx, inv)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runtime) execute(ctx context.Context, inv transition.ActionInvocation) {
	a := inv.Action

	var overallTimeout time.Duration
	if a.Timeout != nil {
		overallTimeout = time.Duration(*a.Timeout) * time.Second
	}
	client := newHTTPClient(overallTimeout)

	attempts := a.RetryCount() + 1
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			r.recorder.IncHTTPCallRetried()
		}

		start := time.Now()
		status, err := callHTTP(ctx, client, a)
		r.recorder.ObserveHTTPCallDuration(time.Since(start))

		lastErr = err
		lastStatus = status

		if err == nil && isSuccess(status) {
			r.recorder.IncHTTPCallSuccess()
			r.logger.Debug("http call succeeded",
				"url", a.URL, "method", a.Method, "status", status, "from", inv.From, "to", inv.To)
			return
		}

		r.recorder.IncHTTPCallError()
		if err != nil {
			r.logger.Warn("http call failed", "url", a.URL, "method", a.Method, "error", err, "attempt", attempt)
		} else {
			r.logger.Warn("http call returned non-success status", "url", a.URL, "method", a.Method, "status", status, "attempt", attempt)
		}
	}

	r.recorder.IncHTTPCallRetriesExhausted()
	if lastErr != nil {
		r.logger.Error("action failed after exhausted retries", "url", a.URL, "method", a.Method, "error", lastErr, "from", inv.From, "to", inv.To)
	} else {
		r.logger.Error("action failed after exhausted retries", "url", a.URL, "method", a.Method, "status", lastStatus, "from", inv.From, "to", inv.To)
	}
}
