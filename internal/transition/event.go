// Package transition implements the Transition & Debounce Engine: it turns
// per-frame classifications into ordered, debounced transition events routed
// to their configured Action executors.
package transition

import "github.com/cuehook/cuehook/internal/config"

// ActionInvocation is dispatched to the Action Executor Runtime once a
// debounced executor fires.
type ActionInvocation struct {
	Action config.Action
	From   config.VideoMode
	To     config.VideoMode
}
