package await

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// Package-level structured logger. Logging is an infrastructure
// cross-cutting concern shared by every master on the process; a per-object
// logger surface would bloat the API for no benefit. The zero state (no
// logger) disables all output.
var globalLogger atomic.Pointer[logiface.Logger[logiface.Event]]

// SetLogger sets the process-wide structured logger used for runtime
// diagnostics (coroutine lifecycle, awaitable transitions, trapped
// continuation errors). Pass nil to disable. Loggers for concrete event
// types can be generalized via their Logger method, e.g.
//
//	await.SetLogger(stumpyLogger.Logger())
func SetLogger(l *logiface.Logger[logiface.Event]) {
	globalLogger.Store(l)
}

// dbg returns a debug-level builder on the global logger, or a disabled
// builder when no logger is configured.
func dbg() *logiface.Builder[logiface.Event] {
	return globalLogger.Load().Debug()
}

// errlog returns an error-level builder on the global logger.
func errlog() *logiface.Builder[logiface.Event] {
	return globalLogger.Load().Err()
}
