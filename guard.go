package await

import (
	"sync/atomic"
)

// CallbackGuard helps ignore callbacks that arrive too late. An async adapter
// captures a [GuardToken] alongside a raw callback; once the guard's owner is
// gone the guard is blocked, and the late callback can cheaply detect it
// should not touch freed state.
type CallbackGuard struct {
	blocked *atomic.Bool
}

// NewCallbackGuard creates an unblocked guard.
func NewCallbackGuard() *CallbackGuard {
	return &CallbackGuard{blocked: new(atomic.Bool)}
}

// Block marks the guard as blocked. All outstanding tokens observe the change.
func (g *CallbackGuard) Block() {
	g.blocked.Store(true)
}

// Token returns a cheap copyable observer of the guard's state. Tokens remain
// readable after the guard's owner is destroyed.
func (g *CallbackGuard) Token() GuardToken {
	return GuardToken{blocked: g.blocked}
}

// GuardToken is a weak observer of a [CallbackGuard]. The zero value reports
// blocked.
type GuardToken struct {
	blocked *atomic.Bool
}

// IsBlocked reports whether the guard has been blocked.
func (t GuardToken) IsBlocked() bool {
	return t.blocked == nil || t.blocked.Load()
}
