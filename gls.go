package await

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// Goroutine-local coroutine registry. The map holds one entry per goroutine
// that currently embodies a coroutine: master coroutines for as long as their
// runtime goroutine uses the package, worker goroutines for the duration of a
// single coroutine run.
var (
	glsMu sync.RWMutex
	gls   map[uint64]*Coro
)

func glsLoad(gid uint64) *Coro {
	glsMu.RLock()
	c := gls[gid]
	glsMu.RUnlock()
	return c
}

func glsStore(gid uint64, c *Coro) {
	glsMu.Lock()
	if gls == nil {
		gls = make(map[uint64]*Coro)
	}
	gls[gid] = c
	glsMu.Unlock()
}

func glsDelete(gid uint64) {
	glsMu.Lock()
	delete(gls, gid)
	glsMu.Unlock()
}

// goroutineID extracts the current goroutine ID from the runtime stack.
// The first line of a stack trace has the format "goroutine N [status]:".
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(s, ' '); i > 0 {
		if id, err := strconv.ParseUint(s[:i], 10, 64); err == nil {
			return id
		}
	}
	return 0
}
