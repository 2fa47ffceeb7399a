package transition

import (
	"context"
	"time"

	"github.com/cuehook/cuehook/internal/config"
)

// Engine holds one executor per (Transition, Action) pair and applies every
// incoming classification to all of them in order, exactly once per frame.
type Engine struct {
	executors []*executor
	debounce  time.Duration
	out       chan<- ActionInvocation
}

// NewEngine builds an Engine from every Transition/Action pair in cfg.
// Every configured Transition produces one executor per Action; executors
// never share mutable state.
func NewEngine(cfg *config.WatcherConfig, debounce time.Duration, out chan<- ActionInvocation) *Engine {
	var execs []*executor
	for _, tr := range cfg.Transitions {
		for _, action := range tr.Actions {
			execs = append(execs, newExecutor(tr.From, tr.To, action))
		}
	}
	return &Engine{executors: execs, debounce: debounce, out: out}
}

// Observe applies classification m, observed at time now, to every
// executor in order and dispatches the Action of any executor that fires.
// Dispatch blocks on the output channel (subject to ctx cancellation) so
// that Action invocations are never silently dropped the way stale frames
// are.
func (e *Engine) Observe(ctx context.Context, m config.VideoMode, now time.Time) error {
	for _, ex := range e.executors {
		if !ex.observe(m, now, e.debounce) {
			continue
		}
		invocation := ActionInvocation{Action: ex.action, From: ex.from, To: ex.to}
		select {
		case e.out <- invocation:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ExecutorCount reports how many (Transition, Action) executors the engine
// is tracking, primarily for tests and startup logging.
func (e *Engine) ExecutorCount() int {
	return len(e.executors)
}
