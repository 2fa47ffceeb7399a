package transition

import (
	"time"

	"github.com/cuehook/cuehook/internal/config"
)

// DefaultDebounceWindow is the fixed debounce window a freshly constructed
// executor protects its Action with unless overridden via configuration.
const DefaultDebounceWindow = 5 * time.Second

// executor owns one (from, to) transition pair and the single Action it
// dispatches when that transition is observed, debounced against repeated
// triggers. It is mutated exclusively by the Engine's single consuming
// goroutine; no internal synchronization is required.
type executor struct {
	from, to config.VideoMode
	action   config.Action

	lastMode    *config.VideoMode
	lastFiredAt time.Time
	hasFired    bool
}

func newExecutor(from, to config.VideoMode, action config.Action) *executor {
	return &executor{from: from, to: to, action: action}
}

// observe applies the per-event update algorithm: it reports whether the
// Action should fire for classification m at time now, then unconditionally
// records m as the new last_mode.
func (e *executor) observe(m config.VideoMode, now time.Time, debounce time.Duration) bool {
	fire := e.lastMode != nil &&
		e.lastMode.Equal(e.from) &&
		m.Equal(e.to) &&
		e.debounceElapsed(now, debounce)

	lastMode := m
	e.lastMode = &lastMode

	if fire {
		e.lastFiredAt = now
		e.hasFired = true
	}
	return fire
}

func (e *executor) debounceElapsed(now time.Time, debounce time.Duration) bool {
	if !e.hasFired {
		return true
	}
	return now.Sub(e.lastFiredAt) > debounce
}
